package docstore

import "log"

// RequiredRules is the rule set the store must carry for the storefront to
// work: public product reads, authenticated writes, authenticated orders.
const RequiredRules = `rules_version = '2';
service cloud.firestore {
  match /databases/{database}/documents {
    match /products/{product} { allow read: if true; allow write: if request.auth != null; }
    match /orders/{order} { allow read, write: if request.auth != null; }
  }
}`

type Access int

const (
	AccessNone Access = iota
	AccessAuthenticated
	AccessPublic
)

type Rule struct {
	Read  Access
	Write Access
}

// Rules maps a collection name to its access rule. Collections without a rule
// deny everything.
type Rules map[string]Rule

func DefaultRules() Rules {
	return Rules{
		CollectionProducts: {Read: AccessPublic, Write: AccessAuthenticated},
		CollectionOrders:   {Read: AccessAuthenticated, Write: AccessAuthenticated},
	}
}

func logPermissionError(logger *log.Logger, op Op, collection string) {
	logger.Printf("permission error op=%s collection=%s; the store rules are blocking access. Required rules:\n%s", op, collection, RequiredRules)
}

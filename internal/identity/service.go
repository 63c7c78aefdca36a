package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/mail"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type Options struct {
	AllowAnonymous bool
	BcryptCost     int
	Logger         *log.Logger
}

// Service is a single-session Provider backed by a UserStore. It holds one
// current identity for the whole process; signing in replaces it for every
// caller.
type Service struct {
	users          UserStore
	allowAnonymous bool
	cost           int
	logger         *log.Logger
	now            func() time.Time

	mu        sync.Mutex
	current   *Identity
	listeners map[int]Listener
	nextID    int
}

func NewService(users UserStore, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:          users,
		allowAnonymous: opts.AllowAnonymous,
		cost:           opts.BcryptCost,
		logger:         opts.Logger,
		now:            time.Now,
		listeners:      make(map[int]Listener),
	}
}

func (s *Service) Current() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Identity{}, false
	}
	return *s.current, true
}

// Authenticated reports whether any identity, anonymous included, is present.
func (s *Service) Authenticated() bool {
	_, ok := s.Current()
	return ok
}

func (s *Service) OnChange(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// setCurrent swaps the session and notifies listeners outside the lock.
func (s *Service) setCurrent(next *Identity) {
	s.mu.Lock()
	s.current = next
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.mu.Unlock()

	var (
		value Identity
		ok    bool
	)
	if next != nil {
		value, ok = *next, true
	}
	for _, fn := range fns {
		fn(value, ok)
	}
}

func (s *Service) SignInAnonymously(ctx context.Context) (Identity, error) {
	if !s.allowAnonymous {
		return Identity{}, ErrOperationNotAllowed
	}
	id := Identity{UID: uuid.NewString(), Anonymous: true}
	s.setCurrent(&id)
	s.logger.Printf("identity: anonymous session uid=%s", id.UID)
	return id, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func (s *Service) SignInWithCredentials(ctx context.Context, email, password string) (Identity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Identity{}, err
	}
	account, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Identity{}, ErrInvalidCredential
		}
		return Identity{}, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return Identity{}, ErrInvalidCredential
	}

	id := Identity{UID: account.UID, Email: account.Email}
	s.setCurrent(&id)
	s.logger.Printf("identity: signed in uid=%s", id.UID)
	return id, nil
}

// Register creates an account and signs it in.
func (s *Service) Register(ctx context.Context, email, password string) (Identity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Identity{}, err
	}
	if len(password) < minPasswordLength {
		return Identity{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Identity{}, fmt.Errorf("hash password: %w", err)
	}

	account := Account{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, account); err != nil {
		if errors.Is(err, ErrEmailInUse) {
			return Identity{}, err
		}
		return Identity{}, fmt.Errorf("create user: %w", err)
	}

	id := Identity{UID: account.UID, Email: account.Email}
	s.setCurrent(&id)
	s.logger.Printf("identity: registered uid=%s", id.UID)
	return id, nil
}

func (s *Service) SignOut(ctx context.Context) error {
	s.setCurrent(nil)
	return nil
}

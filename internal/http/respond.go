package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/docstore"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/filestore"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/identity"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/storefront"
)

type errorResponse struct {
	Error         string `json:"error"`
	RequiredRules string `json:"requiredRules,omitempty"`
	Action        string `json:"action,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storefront.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, storefront.ErrLoginRequired),
		errors.Is(err, identity.ErrInvalidCredential),
		errors.Is(err, identity.ErrUserNotFound),
		errors.Is(err, identity.ErrInvalidEmail):
		return http.StatusUnauthorized
	case errors.Is(err, identity.ErrEmailInUse),
		errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusConflict
	case errors.Is(err, catalog.ErrInvalidDraft),
		errors.Is(err, catalog.ErrUnknownCategory),
		errors.Is(err, checkout.ErrMissingName),
		errors.Is(err, identity.ErrWeakPassword),
		errors.Is(err, filestore.ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, filestore.ErrStoragePermissionDenied),
		docstore.IsPermissionDenied(err):
		return http.StatusForbidden
	case errors.Is(err, identity.ErrOperationNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, storefront.ErrUploadUnavailable),
		errors.Is(err, docstore.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps domain errors to responses. Permission failures carry the
// rule text needed to fix them.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}

	switch {
	case errors.Is(err, storefront.ErrLoginRequired):
		resp.Error = "Please log in to add products."
	case errors.Is(err, checkout.ErrMissingName):
		resp.Error = "Please fill in your name details."
	case errors.Is(err, identity.ErrInvalidCredential),
		errors.Is(err, identity.ErrUserNotFound),
		errors.Is(err, identity.ErrInvalidEmail),
		errors.Is(err, identity.ErrEmailInUse),
		errors.Is(err, identity.ErrWeakPassword):
		resp.Error = identity.LoginMessage(err)
	case errors.Is(err, filestore.ErrInvalidImage):
		resp.Error = "Failed to upload image."
	case errors.Is(err, filestore.ErrStoragePermissionDenied):
		resp.Error = "Storage Permission Denied. Update your storage rules to allow uploads."
		resp.RequiredRules = filestore.RequiredRules
	case docstore.IsPermissionDenied(err):
		resp.Error = "Database Permission Denied"
		resp.RequiredRules = docstore.RequiredRules
	case status == http.StatusInternalServerError:
		resp.Error = "internal error"
	}

	writeJSON(w, status, resp)
}

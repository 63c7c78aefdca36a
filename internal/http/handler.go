// Package httpapi is the JSON surface over one storefront session. The cart
// and the signed-in identity belong to the process, not to the caller: every
// client of a server shares them, as the tabs of one browser would. Run one
// server per shopper or seller.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/identity"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/optimistic"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/storefront"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/syncengine"
)

const (
	maxUploadBytes = 10 << 20
	// maxFormBytes leaves room for the text fields around the image.
	maxFormBytes = maxUploadBytes + 1<<20
)

var errImageTooLarge = errors.New("image too large")

// Storefront is the application surface the handlers drive.
type Storefront interface {
	Status() syncengine.Status
	Reload()
	Refresh(ctx context.Context) error

	Browse(category string, page int) catalog.Page
	Featured() []catalog.Product
	Product(id string) (catalog.Product, error)

	Cart() storefront.CartView
	AddToCart(id string) (bool, error)
	RemoveFromCart(id string) bool
	UpdateQuantity(id string, delta int) (int, bool)
	ClearCart()
	Checkout(ctx context.Context, d checkout.CustomerDetails) (checkout.Receipt, error)

	Identity() (identity.Identity, bool)
	SignIn(ctx context.Context, email, password string) (identity.Identity, error)
	Register(ctx context.Context, email, password string) (identity.Identity, error)
	SignOut(ctx context.Context) error

	Orders() []order.Order
	Sales() []catalog.SalesPoint
	SubmitProduct(ctx context.Context, draft catalog.Draft, upload *storefront.Upload) (catalog.Product, optimistic.Result, error)
	RemoveProduct(ctx context.Context, id string) optimistic.Result
	UpdateStock(ctx context.Context, id string, stock int) optimistic.Result
	UpdatePrice(ctx context.Context, id string, price float64) optimistic.Result
	Seed(ctx context.Context) (int, error)
}

type Handler struct {
	app Storefront
}

func NewHandler(app Storefront) *Handler {
	return &Handler{app: app}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Status())
}

func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	h.app.Reload()
	writeJSON(w, http.StatusOK, h.app.Status())
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Refresh(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.app.Status())
}

// --- catalog ---

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeMessage(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		page = n
	}
	category := r.URL.Query().Get("category")
	if category != "" && category != catalog.AllCategories {
		c, err := catalog.ParseCategory(category)
		if err != nil {
			writeError(w, err)
			return
		}
		category = string(c)
	}
	writeJSON(w, http.StatusOK, h.app.Browse(category, page))
}

func (h *Handler) Featured(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Featured())
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.Product(chi.URLParam(r, "productId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// --- cart ---

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Cart())
}

type addItemRequest struct {
	ProductID string `json:"productId"`
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		writeMessage(w, http.StatusBadRequest, "bad request")
		return
	}
	added, err := h.app.AddToCart(req.ProductID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"added": added, "cart": h.app.Cart()})
}

type quantityRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "bad request")
		return
	}
	if _, ok := h.app.UpdateQuantity(chi.URLParam(r, "productId"), req.Delta); !ok {
		writeMessage(w, http.StatusNotFound, "not in cart")
		return
	}
	writeJSON(w, http.StatusOK, h.app.Cart())
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	h.app.RemoveFromCart(chi.URLParam(r, "productId"))
	writeJSON(w, http.StatusOK, h.app.Cart())
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.app.ClearCart()
	writeJSON(w, http.StatusOK, h.app.Cart())
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var d checkout.CustomerDetails
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeMessage(w, http.StatusBadRequest, "bad request")
		return
	}
	if err := d.Validate(); err != nil {
		writeError(w, err)
		return
	}
	receipt, err := h.app.Checkout(r.Context(), d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

// --- auth ---

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, email, password string) (identity.Identity, error)) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeMessage(w, http.StatusBadRequest, "bad request")
		return
	}
	id, err := fn(r.Context(), c.Email, c.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	h.authenticate(w, r, h.app.SignIn)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	h.authenticate(w, r, h.app.Register)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.app.SignOut(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := h.app.Identity()
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "not signed in")
		return
	}
	writeJSON(w, http.StatusOK, id)
}

// --- seller ---

func (h *Handler) SellerOrders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Orders())
}

func (h *Handler) SellerSales(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Sales())
}

type mutationResponse struct {
	Product *catalog.Product  `json:"product,omitempty"`
	Result  optimistic.Result `json:"result"`
}

// CreateProduct accepts JSON or a multipart form with an optional imageFile.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	draft, upload, err := decodeDraft(r)
	if errors.Is(err, errImageTooLarge) {
		writeMessage(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	p, res, err := h.app.SubmitProduct(r.Context(), draft, upload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, mutationResponse{Product: &p, Result: res})
}

func decodeDraft(r *http.Request) (catalog.Draft, *storefront.Upload, error) {
	var d catalog.Draft
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			return d, nil, errors.New("bad request")
		}
		return d, nil, nil
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return d, nil, errImageTooLarge
		}
		return d, nil, errors.New("invalid form")
	}
	d.Name = r.FormValue("name")
	d.Image = r.FormValue("image")
	d.Description = r.FormValue("description")
	d.Specs = r.FormValue("specs")
	d.Weight = r.FormValue("weight")
	d.FrameSize = r.FormValue("frameSize")
	if v := r.FormValue("category"); v != "" {
		c, err := catalog.ParseCategory(v)
		if err != nil {
			return d, nil, err
		}
		d.Category = c
	}
	if v := r.FormValue("price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return d, nil, errors.New("price must be a number")
		}
		d.Price = price
	}
	if v := r.FormValue("stock"); v != "" {
		stock, err := strconv.Atoi(v)
		if err != nil {
			return d, nil, errors.New("stock must be an integer")
		}
		d.Stock = stock
	}

	file, header, err := r.FormFile("imageFile")
	if errors.Is(err, http.ErrMissingFile) {
		return d, nil, nil
	}
	if err != nil {
		return d, nil, errors.New("invalid image file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return d, nil, errors.New("invalid image file")
	}
	if len(data) > maxUploadBytes {
		return d, nil, errImageTooLarge
	}
	return d, &storefront.Upload{Name: header.Filename, Data: data}, nil
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	res := h.app.RemoveProduct(r.Context(), chi.URLParam(r, "productId"))
	writeJSON(w, http.StatusOK, mutationResponse{Result: res})
}

type stockRequest struct {
	Stock *int `json:"stock"`
}

func (h *Handler) SetStock(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Stock == nil {
		writeMessage(w, http.StatusBadRequest, "bad request")
		return
	}
	res := h.app.UpdateStock(r.Context(), chi.URLParam(r, "productId"), *req.Stock)
	writeJSON(w, http.StatusOK, mutationResponse{Result: res})
}

type priceRequest struct {
	Price *float64 `json:"price"`
}

func (h *Handler) SetPrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Price == nil {
		writeMessage(w, http.StatusBadRequest, "bad request")
		return
	}
	res := h.app.UpdatePrice(r.Context(), chi.URLParam(r, "productId"), *req.Price)
	writeJSON(w, http.StatusOK, mutationResponse{Result: res})
}

func (h *Handler) Seed(w http.ResponseWriter, r *http.Request) {
	n, err := h.app.Seed(r.Context())
	msg := storefront.SeedMessage(n, err)
	if err != nil {
		writeJSON(w, statusFor(err), map[string]any{"error": msg, "count": n})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msg, "count": n})
}

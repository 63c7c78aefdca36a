package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/filestore"
)

type RouterOptions struct {
	CORSAllowOrigins []string
	// UploadDir, when set, is served under /product-images/.
	UploadDir string
}

func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	if len(opts.CORSAllowOrigins) > 0 {
		r.Use(CORS(opts.CORSAllowOrigins))
	}

	r.Get("/health", h.Health)
	if opts.UploadDir != "" {
		r.Handle("/"+filestore.Prefix+"/*", http.FileServer(http.Dir(opts.UploadDir)))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.State)
		r.Post("/reload", h.Reload)
		r.Post("/refresh", h.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(RequireReady(h.app))

			r.Route("/products", func(r chi.Router) {
				r.Get("/", h.ListProducts)
				r.Get("/featured", h.Featured)
				r.Get("/{productId}", h.GetProduct)
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Delete("/", h.ClearCart)
				r.Post("/items", h.AddCartItem)
				r.Patch("/items/{productId}", h.UpdateCartItem)
				r.Delete("/items/{productId}", h.RemoveCartItem)
			})
			r.Post("/checkout", h.Checkout)

			r.Route("/auth", func(r chi.Router) {
				r.Post("/login", h.Login)
				r.Post("/register", h.Register)
				r.Post("/logout", h.Logout)
				r.Get("/me", h.Me)
			})

			r.Route("/seller", func(r chi.Router) {
				r.Get("/orders", h.SellerOrders)
				r.Get("/sales", h.SellerSales)
				r.Post("/seed", h.Seed)
				r.Post("/products", h.CreateProduct)
				r.Delete("/products/{productId}", h.DeleteProduct)
				r.Put("/products/{productId}/stock", h.SetStock)
				r.Put("/products/{productId}/price", h.SetPrice)
			})
		})
	})

	return r
}

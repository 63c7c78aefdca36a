package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/filestore"
	httpapi "github.com/andreasstove999/ecommerce-system/storefront-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/identity"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/storefront"
)

type ServeOptions struct {
	*RootOptions
	Addr string
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides HTTP_ADDR)")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		cfg.HTTPAddr = opts.Addr
	}
	logger := opts.logger()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// --- storage ---
	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	// --- app ---
	auth := identity.NewService(b.users, identity.Options{
		AllowAnonymous: cfg.AllowAnonymousAuth,
		Logger:         logger,
	})
	files := filestore.NewDisk(filestore.DiskOptions{
		Root:       cfg.UploadDir,
		BaseURL:    cfg.PublicBaseURL,
		MaxWidth:   cfg.ImageMaxWidth,
		Authorized: auth.Authenticated,
		Logger:     logger,
	})

	app, err := storefront.New(storefront.Deps{
		Store:          b.store,
		Auth:           auth,
		Files:          files,
		Logger:         logger,
		LoadingTimeout: cfg.LoadingTimeout,
	})
	if err != nil {
		return err
	}
	app.Start(ctx)
	defer app.Close()

	// --- HTTP ---
	h := httpapi.NewHandler(app)
	r := httpapi.NewRouter(h, httpapi.RouterOptions{
		CORSAllowOrigins: cfg.CORSAllowOrigins,
		UploadDir:        files.Root(),
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Printf("http listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Printf("shutdown signal: %s", sig)
	case <-ctx.Done():
	case runErr = <-errCh:
		logger.Printf("fatal error: %v", runErr)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = httpServer.Shutdown(shutdownCtx)
	cancel()

	logger.Printf("shutdown complete")
	return runErr
}

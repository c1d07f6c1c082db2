//	@title			Pixelift API
//	@version		1.0
//	@description	AI photo enhancer backend: upload a photo, run super-resolution on it, download the result through a tokenized link.
//
//	@host		localhost:5001
//	@BasePath	/api
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/pixelift/service/internal/admin"
	"github.com/pixelift/service/internal/auth"
	"github.com/pixelift/service/internal/config"
	"github.com/pixelift/service/internal/db"
	"github.com/pixelift/service/internal/enhance"
	"github.com/pixelift/service/internal/image"
	appMiddleware "github.com/pixelift/service/internal/middleware"
	"github.com/pixelift/service/internal/response"
	"github.com/pixelift/service/internal/storage"
	"github.com/pixelift/service/internal/user"

	_ "github.com/pixelift/service/docs/swagger"
)

func main() {
	cfg := config.Load()
	startedAt := time.Now()

	pool, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	files, err := newStorage(cfg)
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}

	if cfg.ReplicateToken == "" {
		log.Println("WARNING: REPLICATE_API_TOKEN is not set; enhancement calls will fail")
	}
	provider, err := enhance.NewReplicate(cfg.ReplicateToken, cfg.EnhanceModel)
	if err != nil {
		log.Fatalf("enhancement provider init failed: %v", err)
	}

	// Wire dependencies: repository → service → handler
	userRepo := user.NewRepository(pool)
	userSvc := user.NewService(userRepo)

	authSvc := auth.NewService(userRepo, cfg.JWTSecret)
	authHandler := auth.NewHandler(authSvc)

	imageRepo := image.NewRepository(pool)
	imageSvc := image.NewService(imageRepo, files, provider, nil, cfg.EnhanceScale, cfg.EnhanceTimeout)
	imageHandler := image.NewHandler(imageSvc, cfg.IsProduction())

	adminHandler := admin.NewHandler(userSvc, imageSvc)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Swagger UI, served at /swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api", func(r chi.Router) {
		r.Use(httprate.LimitByIP(100, 15*time.Minute))

		// Operational probes
		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			response.OK(w, map[string]interface{}{
				"status":    "healthy",
				"database":  pingStatus(req.Context(), pool),
				"uptime":    time.Since(startedAt).String(),
				"timestamp": time.Now().UTC(),
			})
		})
		r.Get("/test", func(w http.ResponseWriter, req *http.Request) {
			response.OK(w, map[string]interface{}{
				"message":   "API is working!",
				"database":  pingStatus(req.Context(), pool),
				"timestamp": time.Now().UTC(),
			})
		})
		r.Get("/db-status", func(w http.ResponseWriter, req *http.Request) {
			response.OK(w, map[string]interface{}{
				"connected": pingStatus(req.Context(), pool) == "connected",
				"timestamp": time.Now().UTC(),
			})
		})

		// Auth, with its own stricter limiter
		r.Route("/auth", func(r chi.Router) {
			r.Use(httprate.LimitByIP(5, 15*time.Minute))
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		r.Route("/images", func(r chi.Router) {
			r.Post("/enhance", imageHandler.Enhance)
			r.Get("/download/{filePath}", imageHandler.Download)

			r.Group(func(r chi.Router) {
				r.Use(appMiddleware.RequireAuth(cfg.JWTSecret))
				r.Get("/my", imageHandler.MyImages)
				r.Delete("/{id}", imageHandler.Delete)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(appMiddleware.RequireAuth(cfg.JWTSecret))
			r.Use(appMiddleware.RequireAdmin)
			r.Get("/users", adminHandler.Users)
			r.Get("/images", adminHandler.Images)
		})
	})

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// No write timeout: the enhance route holds the connection for the
		// provider's full round trip, bounded by ENHANCE_TIMEOUT instead.
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("server listening on :%s (env=%s)", cfg.Port, cfg.AppEnv)
		log.Printf("swagger UI at http://localhost:%s/swagger/", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	log.Println("server stopped")
}

// newStorage selects the configured file store. Local disk is the default;
// "s3" works with MinIO or any S3-compatible endpoint.
func newStorage(cfg *config.Config) (storage.Storage, error) {
	if cfg.StorageBackend == "s3" {
		return storage.NewS3(
			cfg.StorageEndpoint,
			cfg.StorageAccessKey,
			cfg.StorageSecretKey,
			cfg.StorageBucket,
			cfg.StorageUseSSL,
		)
	}
	return storage.NewLocal(cfg.UploadDir)
}

// pingStatus reports the store's reachability for the probe endpoints with a
// fresh ping instead of cached connection state.
func pingStatus(ctx context.Context, pool interface {
	Ping(context.Context) error
}) string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return "disconnected"
	}
	return "connected"
}

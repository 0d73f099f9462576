package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"nongxian/auth"
	"nongxian/catalog"
	"nongxian/config"
	"nongxian/coupons"
	"nongxian/db"
	"nongxian/globals"
	"nongxian/idempotency"
	"nongxian/mailer"
	"nongxian/metrics"
	"nongxian/mq"
	"nongxian/orders"
	"nongxian/ratelim"
	"nongxian/rdx"
	"nongxian/routes"
	"nongxian/setup"
	"nongxian/shipping"
)

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		duration := time.Since(start)
		log.Printf("%s %s from %s – %v", r.Method, r.RequestURI, r.RemoteAddr, duration)
	})
}

func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func setupRouter(rateLimiter *ratelim.RateLimiter, deps *routes.Deps) *httprouter.Router {
	router := httprouter.New()
	router.GET("/health", Index)
	router.Handler(http.MethodGet, "/metrics", metrics.Handler())

	routes.RoutesWrapper(router, rateLimiter, deps)
	return router
}

func openRepos(ctx context.Context, cfg config.MongoConfig) (*db.Repos, func(), error) {
	if cfg.Driver == "memory" {
		log.Println("⚠️ Using in-memory store; data is lost on restart")
		return db.NewMemoryRepos(), func() {}, nil
	}
	client, database, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := db.EnsureIndexes(ctx, database); err != nil {
		log.Printf("EnsureIndexes error: %v", err)
	}
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			log.Printf("mongo disconnect: %v", err)
		}
	}
	return db.NewMongoRepos(database), closeFn, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("❌ config: %v", err)
	}
	globals.JwtSecret = []byte(cfg.Auth.JWTSecret)
	if cfg.App.IsProduction() && cfg.Auth.JWTSecret == "change-me" {
		log.Fatal("❌ AUTH_JWT_SECRET must be set in production")
	}

	repos, closeStore, err := openRepos(ctx, cfg.Mongo)
	if err != nil {
		log.Fatalf("❌ store: %v", err)
	}
	defer closeStore()

	var events mq.Emitter = mq.Nop{}
	conn, err := rdx.Connect(ctx, cfg.Redis)
	if err != nil {
		log.Printf("Redis unavailable, order events disabled: %v", err)
	} else if conn != nil {
		defer conn.Close()
		events = mq.NewRedisEmitter(conn, cfg.Redis.Channel)
		go mq.Listen(ctx, conn, cfg.Redis.Channel, func(ev mq.Event) {
			log.Printf("event %s order=%s status=%s", ev.Type, ev.OrderID, ev.Status)
		})
	}

	mailClient := mailer.NewClient(cfg.Mail.RelayURL, mailer.WithTimeout(cfg.Mail.Timeout()))
	notifier := mailer.NewNotifier(mailClient, mailer.NewTemplates(repos.EmailTemplates), repos.EmailSettings, cfg.Mail, cfg.App.StoreURL)

	cat := catalog.New(repos)
	couponSvc := coupons.NewService(repos.Coupons, repos.CouponUsage)
	deps := &routes.Deps{
		Repos:       repos,
		Setup:       setup.New(repos, cfg.Mail).WithOrigin(cfg.App.StoreURL),
		Auth:        auth.NewService(repos.Admins, cfg.Auth.TTL()),
		Catalog:     cat,
		Coupons:     couponSvc,
		Orders:      orders.NewService(repos.Orders, cat, couponSvc, notifier, events),
		Shipping:    shipping.NewService(repos.Orders, cat, notifier, events).WithLabelFont(cfg.App.LabelFont),
		Idempotency: idempotency.New(repos.Idempotency),
	}

	rateLimiter := ratelim.NewRateLimiter(cfg.Server.RatePerMinute, cfg.Server.RateBurst)
	router := setupRouter(rateLimiter, deps)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", idempotency.Header},
		AllowCredentials: true,
	}).Handler(router)

	handler := loggingMiddleware(securityHeaders(corsHandler))

	server := &http.Server{
		Addr:              cfg.Server.GetServerAddr(),
		Handler:           handler,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ ListenAndServe error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("🛑 Shutdown signal received; shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Graceful shutdown failed: %v", err)
	}

	log.Println("✅ Server stopped cleanly")
}

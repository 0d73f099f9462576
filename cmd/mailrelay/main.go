package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/gomail.v2"

	"nongxian/config"
	"nongxian/mailer"
	"nongxian/metrics"
	"nongxian/relay"
)

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s from %s – %v", r.Method, r.URL.Path, r.RemoteAddr, time.Since(start))
	})
}

func main() {
	cfg, err := config.LoadRelay(context.Background())
	if err != nil {
		log.Fatalf("❌ config: %v", err)
	}

	dialer := gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
	rl := relay.New(dialer,
		mailer.Address{Email: cfg.SMTP.FromEmail, Name: cfg.SMTP.FromName},
		relay.WithRetries(cfg.Relay.MaxRetries),
		relay.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Relay.FetchTimeout) * time.Second}),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", rl.Handler())

	server := &http.Server{
		Addr:              cfg.Relay.Addr,
		Handler:           loggingMiddleware(mux),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		log.Printf("🚀 Mail relay listening on %s (SMTP %s:%d)", cfg.Relay.Addr, cfg.SMTP.Host, cfg.SMTP.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ ListenAndServe error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("🛑 Shutdown signal received; shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Graceful shutdown failed: %v", err)
	}
	log.Println("✅ Relay stopped cleanly")
}

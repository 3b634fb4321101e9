package main

import (
	"context"
	"log"

	"tagrec-backend/internal/bootstrap"
	"tagrec-backend/internal/shared/config"
	"tagrec-backend/internal/shared/server"
)

func main() {
	cfg := config.Load()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	app.StartCleanup(context.Background())

	addr := server.Addr(cfg.Port)
	log.Printf("Starting API server on %s", addr)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"captminter/internal/app/bootstrap"
)

// Worker process entrypoint.
// Data flow:
// 1) Load config (fatal on missing credential or ledger identifiers).
// 2) Build app wiring (postgres, sui ledger client, event bus).
// 3) Run the disbursement scheduler until shutdown.
func main() {
	log.Println("captminter worker starting")
	app, err := bootstrap.BuildWorker()
	if err != nil {
		log.Fatalf("bootstrap worker failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("worker shutdown close failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("captminter worker stopped with error: %v", err)
	}
}

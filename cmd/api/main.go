package main

import (
	"context"
	"log"

	"captminter/internal/app/bootstrap"
)

// API process entrypoint: the read-only reconciliation surface over the
// session store and reward receipts.
func main() {
	log.Println("captminter api starting")
	app, err := bootstrap.BuildAPI()
	if err != nil {
		log.Fatalf("bootstrap api failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("api shutdown close failed: %v", err)
		}
	}()

	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("captminter api stopped with error: %v", err)
	}
}

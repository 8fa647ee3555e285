package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/farmer1st/farmer-code/internal/cli"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Interrupts cancel long-lived polls; persisted state resumes later.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal: %v", sig)
		cancel()
	}()

	if err := cli.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

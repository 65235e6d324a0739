// Package main runs the AI moderation sidecar until SIGINT or SIGTERM.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	aicmd "github.com/louisbranch/skillswap/internal/cmd/ai"
	entrypoint "github.com/louisbranch/skillswap/internal/platform/cmd"
)

func main() {
	cfg, err := aicmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix(entrypoint.LogPrefix(entrypoint.ServiceAI))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := aicmd.Run(ctx, cfg); err != nil {
		log.Fatalf("ai service stopped: %v", err)
	}
}

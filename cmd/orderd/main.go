package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	orderdcmd "github.com/louisbranch/ordercore/internal/cmd/orderd"
)

func main() {
	cfg, err := orderdcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[ORDERD] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := orderdcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to run: %v", err)
	}
}

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"estatehub/internal/backend"
	"estatehub/pkg/utils"
)

func main() {
	in := flag.String("in", "data/listings.json", "input JSON path (bare array or export document)")
	flag.Parse()

	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		log.Fatalf("read %s: %v", *in, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	be, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("backend %s: %v", cfg.Backend, err)
	}
	defer be.Close()

	res, err := be.Transfer.Import(ctx, data)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}

	log.Printf("✅ imported %d listings and %d images from %s", res.Applied, res.Images, *in)
}

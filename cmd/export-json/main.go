package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"estatehub/internal/backend"
	"estatehub/pkg/utils"
)

func main() {
	out := flag.String("out", "data/listings.json", "output JSON path")
	pretty := flag.Bool("pretty", true, "indent the output")
	flag.Parse()

	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	be, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("backend %s: %v", cfg.Backend, err)
	}
	defer be.Close()

	payload, err := be.Transfer.Export(ctx)
	if err != nil {
		log.Fatalf("export failed: %v", err)
	}

	var b []byte
	if *pretty {
		b, err = json.MarshalIndent(payload, "", "  ")
	} else {
		b, err = json.Marshal(payload)
	}
	if err != nil {
		log.Fatalf("encode export: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		log.Fatalf("create output dir: %v", err)
	}
	if err := os.WriteFile(*out, b, 0o644); err != nil {
		log.Fatalf("write %s: %v", *out, err)
	}

	log.Printf("✅ exported %d listings and %d images to %s", len(payload.Items), len(payload.Images), *out)
}

package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
)

func main() {
	// serves a listings document at GET /listings.json for seed bootstrap demos
	addr := flag.String("addr", ":9000", "listen address")
	dataPath := flag.String("file", "data/listings.json", "seed document to serve")
	flag.Parse()

	http.HandleFunc("/listings.json", func(w http.ResponseWriter, r *http.Request) {
		b, err := os.ReadFile(*dataPath)
		if err != nil {
			http.Error(w, "cannot read seed file: "+err.Error(), http.StatusInternalServerError)
			return
		}
		// validate JSON so a bad file doesn't silently break bootstrap
		var tmp any
		if err := json.Unmarshal(b, &tmp); err != nil {
			http.Error(w, "seed file is invalid JSON: "+err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(b)
	})

	log.Printf("seed-server listening on %s (serving %s)", *addr, *dataPath)
	log.Fatal(http.ListenAndServe(*addr, nil))
}

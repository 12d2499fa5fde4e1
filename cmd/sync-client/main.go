package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"time"
)

type event struct {
	Type       string    `json:"type"`
	ListingID  int64     `json:"listing_id,omitempty"`
	Count      int       `json:"count,omitempty"`
	Categories []string  `json:"categories,omitempty"`
	Seq        uint64    `json:"seq"`
	At         time.Time `json:"at"`
}

func main() {
	addr := flag.String("addr", "127.0.0.1:7070", "TCP sync server address")
	pretty := flag.Bool("pretty", true, "pretty print JSON events")
	only := flag.String("only", "", "comma-separated event types to show (e.g. listing.upsert,listing.delete)")
	flag.Parse()

	filter := map[string]bool{}
	for _, t := range strings.Split(*only, ",") {
		if t = strings.TrimSpace(t); t != "" {
			filter[t] = true
		}
	}

	for {
		if err := run(*addr, *pretty, filter); err != nil {
			log.Printf("[sync-client] disconnected: %v", err)
		}
		time.Sleep(1 * time.Second) // auto reconnect
	}
}

func run(addr string, pretty bool, filter map[string]bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[sync-client] connected to %s", addr)

	var lastSeq uint64
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Bytes()

		var ev event
		if err := json.Unmarshal(line, &ev); err != nil {
			// not JSON? print raw
			fmt.Println(string(line))
			continue
		}
		if ev.Type == "welcome" {
			log.Printf("[sync-client] feed at seq %d", ev.Seq)
			lastSeq = ev.Seq
			continue
		}
		if lastSeq > 0 && ev.Seq > lastSeq+1 {
			log.Printf("[sync-client] missed %d event(s), refresh the catalog", ev.Seq-lastSeq-1)
		}
		lastSeq = ev.Seq

		if len(filter) > 0 && !filter[ev.Type] {
			continue
		}
		if !pretty {
			fmt.Println(string(line))
			continue
		}
		b, _ := json.MarshalIndent(ev, "", "  ")
		fmt.Println(string(b))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

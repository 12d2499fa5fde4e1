package sync

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout       = 2 * time.Second
	defaultHistorySize = 50
)

// Hub fans catalog events out to TCP feed clients and browser websockets and
// keeps the most recent events so a reconnecting page can catch up.
type Hub struct {
	mu          sync.Mutex
	clients     map[net.Conn]struct{}
	wsClients   map[*websocket.Conn]struct{}
	seq         atomic.Uint64
	history     []Event
	historySize int
}

type Stats struct {
	TCPClients int    `json:"tcp_clients"`
	WSClients  int    `json:"ws_clients"`
	LastSeq    uint64 `json:"last_seq"`
}

func NewHub() *Hub {
	return &Hub{
		clients:     make(map[net.Conn]struct{}),
		wsClients:   make(map[*websocket.Conn]struct{}),
		historySize: defaultHistorySize,
	}
}

func (h *Hub) Add(conn net.Conn) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

// AttachWS replays retained events newer than since, then registers ws. Both
// happen under the hub lock so no event can fall between them.
func (h *Hub) AttachWS(ws *websocket.Conn, since uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ev := range h.sinceLocked(since) {
		b, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := ws.WriteMessage(websocket.TextMessage, append(b, '\n')); err != nil {
			return
		}
	}
	h.wsClients[ws] = struct{}{}
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.wsClients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// BroadcastJSON stamps catalog events with the next sequence number and sends
// one JSON line to every client. Clients that fail a write are dropped.
func (h *Hub) BroadcastJSON(v any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ev, ok := v.(Event); ok {
		ev.Seq = h.seq.Add(1)
		if ev.At.IsZero() {
			ev.At = time.Now().UTC()
		}
		h.history = append(h.history, ev)
		if len(h.history) > h.historySize {
			h.history = h.history[len(h.history)-h.historySize:]
		}
		v = ev
	}

	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	b = append(b, '\n')

	for c := range h.clients {
		_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := c.Write(b); err != nil {
			_ = c.Close()
			delete(h.clients, c)
		}
	}

	for ws := range h.wsClients {
		_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			_ = ws.Close()
			delete(h.wsClients, ws)
		}
	}
}

// Since returns the retained events with a sequence number above seq, oldest
// first.
func (h *Hub) Since(seq uint64) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sinceLocked(seq)
}

func (h *Hub) sinceLocked(seq uint64) []Event {
	var out []Event
	for _, ev := range h.history {
		if ev.Seq > seq {
			out = append(out, ev)
		}
	}
	return out
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		TCPClients: len(h.clients),
		WSClients:  len(h.wsClients),
		LastSeq:    h.seq.Load(),
	}
}

func (h *Hub) Welcome(conn net.Conn) {
	st := h.Stats()
	msg := fmt.Sprintf("{\"type\":\"welcome\",\"message\":\"connected\",\"clients\":%d,\"seq\":%d}\n", st.TCPClients, st.LastSeq)
	_, _ = conn.Write([]byte(msg))
}

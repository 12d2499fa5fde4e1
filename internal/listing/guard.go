package listing

import "sync"

// submitGuard refuses a second submit for a key while the first is running.
type submitGuard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

// acquire reports false when key is busy. An empty key is never guarded.
func (g *submitGuard) acquire(key string) (release func(), ok bool) {
	if key == "" {
		return func() {}, true
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inflight == nil {
		g.inflight = make(map[string]struct{})
	}
	if _, busy := g.inflight[key]; busy {
		return nil, false
	}
	g.inflight[key] = struct{}{}

	return func() {
		g.mu.Lock()
		delete(g.inflight, key)
		g.mu.Unlock()
	}, true
}

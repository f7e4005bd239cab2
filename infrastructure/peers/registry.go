package peers

import (
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"cosmos-backend/application/ports"
)

// PeerConfig names one remote installation.
type PeerConfig struct {
	Name string `yaml:"name" validate:"required"`
	URL  string `yaml:"url" validate:"required,url"`
}

// Registry is the configured set of remote peers. The config watcher swaps
// it at runtime; readers always see a complete set.
type Registry struct {
	mu      sync.RWMutex
	peers   []ports.Peer
	byURL   map[string]*HTTPPeer
	client  *http.Client
	breaker BreakerConfig
	logger  *zap.Logger
}

var _ ports.PeerSource = (*Registry)(nil)

// NewRegistry creates a registry with the given peers.
func NewRegistry(configs []PeerConfig, timeout time.Duration, breaker BreakerConfig, logger *zap.Logger) *Registry {
	r := &Registry{
		byURL:   make(map[string]*HTTPPeer),
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
		logger:  logger,
	}
	r.Replace(configs)
	return r
}

// Peers returns a snapshot of the current peer list.
func (r *Registry) Peers() []ports.Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ports.Peer, len(r.peers))
	copy(out, r.peers)
	return out
}

// Replace installs a new peer list. Peers whose name and URL are unchanged
// keep their circuit breaker state.
func (r *Registry) Replace(configs []PeerConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	peers := make([]ports.Peer, 0, len(configs))
	byURL := make(map[string]*HTTPPeer, len(configs))
	for _, c := range configs {
		key := c.Name + "|" + c.URL
		p, ok := r.byURL[key]
		if !ok {
			p = NewHTTPPeer(c.Name, c.URL, r.client, r.breaker, r.logger)
		}
		byURL[key] = p
		peers = append(peers, p)
	}
	r.peers = peers
	r.byURL = byURL

	r.logger.Info("Network peers configured", zap.Int("count", len(peers)))
}

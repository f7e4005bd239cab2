package peers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"cosmos-backend/application/ports"
	"cosmos-backend/domain/core/entities"
	"cosmos-backend/domain/core/valueobjects"
	pkgerrors "cosmos-backend/pkg/errors"
)

// sharesPath is where every installation lists its ledger.
const sharesPath = "/api/open-cosmos/shares"

// maxListingBytes caps a peer's listing response.
const maxListingBytes = 4 << 20

// BreakerConfig tunes the circuit breaker guarding each remote peer.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the breaker settings used when none are configured.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      3,
	}
}

// remoteShare is the part of a peer's share listing the directory needs.
type remoteShare struct {
	PackageName string                  `json:"package_name"`
	WorldName   string                  `json:"world_name"`
	Visibility  valueobjects.Visibility `json:"visibility"`
	Credits     []valueobjects.Credit   `json:"credits"`
	Revoked     bool                    `json:"revoked"`
	CreatedAt   time.Time               `json:"created_at"`
}

type remoteListing struct {
	Items []remoteShare `json:"items"`
}

// HTTPPeer fetches another installation's share listing. A peer that keeps
// failing is short-circuited until the breaker's timeout passes.
type HTTPPeer struct {
	name    string
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

var _ ports.Peer = (*HTTPPeer)(nil)

// NewHTTPPeer creates a remote peer.
func NewHTTPPeer(name, baseURL string, client *http.Client, cfg BreakerConfig, logger *zap.Logger) *HTTPPeer {
	return &HTTPPeer{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "peer:" + name,
			MaxRequests: cfg.MaxRequests,
			Interval:    cfg.Interval,
			Timeout:     cfg.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if counts.Requests < cfg.MinRequests {
					return false
				}
				return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Info("Peer circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
	}
}

func (p *HTTPPeer) Name() string { return p.name }

// Shares returns the peer's listing. Malformed entries are dropped rather
// than failing the whole listing.
func (p *HTTPPeer) Shares(ctx context.Context) ([]entities.ShareSummary, error) {
	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.fetch(ctx)
	})
	if err != nil {
		return nil, pkgerrors.NewNetworkError(fmt.Sprintf("peer %s unavailable", p.name), err)
	}

	listing := result.(*remoteListing)
	summaries := make([]entities.ShareSummary, 0, len(listing.Items))
	for _, item := range listing.Items {
		if item.PackageName == "" {
			continue
		}
		if _, err := valueobjects.ParseVisibility(string(item.Visibility)); err != nil {
			continue
		}
		summaries = append(summaries, entities.ShareSummary{
			Package:    item.PackageName,
			WorldName:  item.WorldName,
			Visibility: item.Visibility,
			Credits:    item.Credits,
			Revoked:    item.Revoked,
			SharedAt:   item.CreatedAt,
		})
	}
	return summaries, nil
}

func (p *HTTPPeer) fetch(ctx context.Context) (*remoteListing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+sharesPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var listing remoteListing
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxListingBytes)).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	return &listing, nil
}

package services

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cosmos-backend/application/ports"
	"cosmos-backend/domain/core/entities"
	pkgerrors "cosmos-backend/pkg/errors"
)

// maxConcurrentPeers bounds the peer fan-out of one directory read.
const maxConcurrentPeers = 8

// PeerObserver records peer fetch failures.
type PeerObserver interface {
	PeerFetchFailed(peer string)
}

// NetworkDirectory lists the listed packages of the local ledger and of every
// known peer. It keeps no state of its own; each call reads everything again.
type NetworkDirectory struct {
	local     ports.Peer
	remotes   ports.PeerSource
	thumbnail string
	observer  PeerObserver
	logger    *zap.Logger
}

// NewNetworkDirectory creates a directory. remotes and observer may be nil.
func NewNetworkDirectory(local ports.Peer, remotes ports.PeerSource, thumbnail string, observer PeerObserver, logger *zap.Logger) *NetworkDirectory {
	return &NetworkDirectory{
		local:     local,
		remotes:   remotes,
		thumbnail: thumbnail,
		observer:  observer,
		logger:    logger,
	}
}

// List returns local entries first, then each peer's in configured order.
// A package name seen earlier wins. A failing peer is logged and skipped;
// a failing local ledger fails the call.
func (d *NetworkDirectory) List(ctx context.Context) ([]entities.NetworkEntry, error) {
	localShares, err := d.local.Shares(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to read local ledger")
	}

	var peers []ports.Peer
	if d.remotes != nil {
		peers = d.remotes.Peers()
	}
	remote := make([][]entities.ShareSummary, len(peers))

	var g errgroup.Group
	g.SetLimit(maxConcurrentPeers)
	for i, p := range peers {
		g.Go(func() error {
			shares, err := p.Shares(ctx)
			if err != nil {
				d.logger.Warn("Skipping unreachable peer",
					zap.String("peer", p.Name()),
					zap.Error(err),
				)
				if d.observer != nil {
					d.observer.PeerFetchFailed(p.Name())
				}
				return nil
			}
			remote[i] = shares
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]bool)
	items := make([]entities.NetworkEntry, 0, len(localShares))
	add := func(peer string, shares []entities.ShareSummary) {
		for _, s := range shares {
			entry, ok := s.NetworkEntry(peer, d.thumbnail)
			if !ok || seen[entry.Package] {
				continue
			}
			seen[entry.Package] = true
			items = append(items, entry)
		}
	}

	add(d.local.Name(), localShares)
	for i, p := range peers {
		add(p.Name(), remote[i])
	}
	return items, nil
}

// Package peers supplies the installations whose shares make up the network
// directory: this one, read from the ledger, and remote ones over HTTP.
package peers

import (
	"context"

	"cosmos-backend/application/ports"
	"cosmos-backend/domain/core/entities"
)

// LocalPeer reads this installation's ledger.
type LocalPeer struct {
	name       string
	transactor ports.Transactor
}

var _ ports.Peer = (*LocalPeer)(nil)

// NewLocalPeer creates the local peer under the given display name.
func NewLocalPeer(name string, transactor ports.Transactor) *LocalPeer {
	return &LocalPeer{name: name, transactor: transactor}
}

func (p *LocalPeer) Name() string { return p.name }

func (p *LocalPeer) Shares(ctx context.Context) ([]entities.ShareSummary, error) {
	var summaries []entities.ShareSummary
	err := p.transactor.Read(ctx, func(ctx context.Context, repos ports.Repositories) error {
		pkgs, err := repos.Shares().List(ctx)
		if err != nil {
			return err
		}
		summaries = make([]entities.ShareSummary, 0, len(pkgs))
		for _, pkg := range pkgs {
			summaries = append(summaries, pkg.Summary())
		}
		return nil
	})
	return summaries, err
}

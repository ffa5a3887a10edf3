package transfer

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Purger permanently removes pages. It is the only path that deletes history.
type Purger struct {
	store  Store
	logger *logrus.Logger
}

// NewPurger creates a new Purger instance.
func NewPurger(store Store, logger *logrus.Logger) (*Purger, error) {
	if store == nil {
		return nil, eris.New("transfer store is required")
	}
	return &Purger{store: store, logger: logger}, nil
}

// Purge deletes every page whose slug starts with slugPrefix and returns how many were removed.
// An empty prefix is rejected.
func (p *Purger) Purge(ctx context.Context, slugPrefix string) (int, error) {
	if strings.TrimSpace(slugPrefix) == "" {
		return 0, eris.New("refusing to purge without a slug prefix")
	}

	deleted, err := p.store.DeletePagesBySlugPrefix(ctx, slugPrefix)
	if err != nil {
		return 0, eris.Wrapf(err, "purging pages with prefix %q", slugPrefix)
	}

	if p.logger != nil {
		p.logger.WithFields(logrus.Fields{
			"prefix":  slugPrefix,
			"deleted": deleted,
		}).Warn("purged pages")
	}

	return deleted, nil
}

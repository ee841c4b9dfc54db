package dedup

import (
	"context"

	"sales-insights-go/internal/logger"
	"sales-insights-go/internal/store"
)

// Gate answers "has this user already analyzed this exact transcript?"
// before any model spend happens. A store failure is logged and treated
// as no-duplicate: worst case the caller pays for a repeat analysis,
// which beats failing the request.
type Gate struct {
	store store.Store
	log   *logger.Logger
}

func NewGate(s store.Store, log *logger.Logger) *Gate {
	return &Gate{store: s, log: log}
}

// FindExisting returns the prior record for (user, hash), or nil when
// there is none or the lookup fails.
func (g *Gate) FindExisting(ctx context.Context, userID, contentHash string) *store.AnalysisRecord {
	rec, err := g.store.FindByHash(ctx, userID, contentHash)
	if err != nil {
		if g.log != nil {
			g.log.WithComponent("dedup").WithError(err).Warn("duplicate lookup failed, proceeding as new")
		}
		return nil
	}
	return rec
}

package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nurpe/snowops-agreements/internal/draft"
	"github.com/nurpe/snowops-agreements/internal/observability/metrics"
	"github.com/nurpe/snowops-agreements/internal/storage"
)

const tempPrefix = "temp/"

// TempReaper deletes staged uploads that no live draft points at anymore.
type TempReaper struct {
	storage storage.Storage
	drafts  draft.Store
	maxAge  time.Duration
	log     zerolog.Logger
}

func NewTempReaper(s storage.Storage, drafts draft.Store, maxAge time.Duration, log zerolog.Logger) *TempReaper {
	return &TempReaper{storage: s, drafts: drafts, maxAge: maxAge, log: log}
}

// Run returns how many objects were removed. Objects younger than maxAge are
// kept even when unreferenced, since their draft may still be in flight.
func (r *TempReaper) Run(ctx context.Context, now time.Time) (int, error) {
	objects, err := r.storage.List(ctx, tempPrefix)
	if err != nil {
		return 0, err
	}
	active, err := r.drafts.ActiveTempKeys(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := now.Add(-r.maxAge)
	removed := 0
	for _, obj := range objects {
		if _, ok := active[obj.Key]; ok {
			continue
		}
		if obj.ModTime.After(cutoff) {
			continue
		}
		if err := r.storage.Delete(ctx, obj.Key); err != nil {
			metrics.ObserveTempCleanup("reaper", "error")
			r.log.Warn().Err(err).Str("key", obj.Key).Msg("failed to reap staged upload")
			continue
		}
		metrics.ObserveTempCleanup("reaper", "ok")
		removed++
	}

	r.log.Info().Int("scanned", len(objects)).Int("removed", removed).Msg("temp sweep finished")
	return removed, nil
}

// Package draft holds unconfirmed agreement submissions, one per user, until
// they are confirmed, discarded or expire.
package draft

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/nurpe/snowops-agreements/internal/model"
)

var ErrNotFound = errors.New("draft not found")

type Store interface {
	Save(ctx context.Context, d model.Draft) error
	Get(ctx context.Context, ownerID uuid.UUID) (*model.Draft, error)
	Delete(ctx context.Context, ownerID uuid.UUID) error
	// ActiveTempKeys lists staged attachment keys referenced by live drafts.
	ActiveTempKeys(ctx context.Context) (map[string]struct{}, error)
}

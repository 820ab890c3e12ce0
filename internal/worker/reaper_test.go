package worker

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/snowops-agreements/internal/draft"
	"github.com/nurpe/snowops-agreements/internal/model"
	"github.com/nurpe/snowops-agreements/internal/storage"
)

func TestTempReaperKeepsReferencedAndRecentUploads(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewLocal(t.TempDir(), "")
	require.NoError(t, err)
	drafts := draft.NewMemoryStore(24 * time.Hour)

	owner := uuid.New()
	live, err := store.Save(ctx, "temp/"+owner.String()+"/live.pdf", strings.NewReader("live"))
	require.NoError(t, err)
	orphan, err := store.Save(ctx, "temp/"+uuid.NewString()+"/orphan.pdf", strings.NewReader("orphan"))
	require.NoError(t, err)
	kept, err := store.Save(ctx, "agreements/"+uuid.NewString()+"/kept.pdf", strings.NewReader("kept"))
	require.NoError(t, err)

	require.NoError(t, drafts.Save(ctx, model.Draft{
		OwnerID:    owner,
		Attachment: &model.StagedAttachment{Name: "live.pdf", Key: live},
	}))

	reaper := NewTempReaper(store, drafts, time.Hour, zerolog.Nop())

	removed, err := reaper.Run(ctx, time.Now())
	require.NoError(t, err)
	require.Zero(t, removed)

	removed, err = reaper.Run(ctx, time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	for key, want := range map[string]bool{live: true, orphan: false, kept: true} {
		exists, err := store.Exists(ctx, key)
		require.NoError(t, err)
		require.Equal(t, want, exists, key)
	}
}

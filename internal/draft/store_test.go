package draft

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/snowops-agreements/internal/model"
)

func sampleDraft(owner uuid.UUID, key string) model.Draft {
	d := model.Draft{
		OwnerID:   owner,
		Form:      model.AgreementForm{Title: "Cleaning services", AgreementTypeID: uuid.New(), VendorID: uuid.New()},
		CreatedAt: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
	}
	if key != "" {
		d.Attachment = &model.StagedAttachment{Name: "contract.pdf", Key: key}
	}
	return d
}

func exerciseStore(t *testing.T, store Store, expire func()) {
	t.Helper()
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	_, err := store.Get(ctx, alice)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, sampleDraft(alice, "temp/a/1.pdf")))
	require.NoError(t, store.Save(ctx, sampleDraft(bob, "")))

	got, err := store.Get(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, "Cleaning services", got.Form.Title)
	require.Equal(t, "temp/a/1.pdf", got.Attachment.Key)

	_, err = store.Get(ctx, bob)
	require.NoError(t, err)

	keys, err := store.ActiveTempKeys(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]struct{}{"temp/a/1.pdf": {}}, keys)

	require.NoError(t, store.Save(ctx, sampleDraft(alice, "temp/a/2.pdf")))
	keys, err = store.ActiveTempKeys(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]struct{}{"temp/a/2.pdf": {}}, keys)

	require.NoError(t, store.Delete(ctx, bob))
	_, err = store.Get(ctx, bob)
	require.ErrorIs(t, err, ErrNotFound)

	expire()
	_, err = store.Get(ctx, alice)
	require.ErrorIs(t, err, ErrNotFound)
	keys, err = store.ActiveTempKeys(ctx)
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	now := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	exerciseStore(t, store, func() { now = now.Add(2 * time.Hour) })
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	exerciseStore(t, NewRedisStore(client, time.Hour), func() { mr.FastForward(2 * time.Hour) })
}

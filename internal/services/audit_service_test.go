package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadops/timetable-backend/internal/models"
	repo "github.com/acadops/timetable-backend/internal/repository"
	"github.com/acadops/timetable-backend/internal/repository/memory"
	"github.com/acadops/timetable-backend/internal/worker"
)

func seedEntries(t *testing.T, store *memory.AuditRepo, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := store.Insert(context.Background(), models.NewAuditEntry{
			Action:  models.ActionCreate,
			Changes: map[string]any{"seq": i},
		})
		require.NoError(t, err)
	}
}

func TestQueryClampsLimit(t *testing.T) {
	store := memory.NewAuditEntries()
	svc := NewAuditService(store, nil)
	seedEntries(t, store, 1500)

	entries, total, err := svc.Query(context.Background(), repo.AuditFilter{}, 0, 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), total)
	assert.Len(t, entries, MaxAuditPageSize)

	entries, total, err = svc.Query(context.Background(), repo.AuditFilter{}, 1000, 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), total)
	assert.Len(t, entries, 500)
}

func TestQueryDefaults(t *testing.T) {
	store := memory.NewAuditEntries()
	svc := NewAuditService(store, nil)
	seedEntries(t, store, 150)

	entries, total, err := svc.Query(context.Background(), repo.AuditFilter{}, -5, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(150), total)
	assert.Len(t, entries, 100, "default page size")
}

func TestQueryNewestFirst(t *testing.T) {
	store := memory.NewAuditEntries()
	svc := NewAuditService(store, nil)
	seedEntries(t, store, 10)

	entries, _, err := svc.Query(context.Background(), repo.AuditFilter{}, 0, 10)
	require.NoError(t, err)
	require.Len(t, entries, 10)
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		inOrder := prev.Timestamp.After(cur.Timestamp) ||
			(prev.Timestamp.Equal(cur.Timestamp) && prev.ID > cur.ID)
		assert.True(t, inOrder, "entry %d out of order", i)
	}
}

func TestQueryFilters(t *testing.T) {
	store := memory.NewAuditEntries()
	svc := NewAuditService(store, nil)

	actor := int64(4)
	course := "course"
	for i := 0; i < 3; i++ {
		_, err := store.Insert(context.Background(), models.NewAuditEntry{
			ActorID: &actor, Action: models.ActionUpdate, EntityType: &course,
		})
		require.NoError(t, err)
	}
	_, err := store.Insert(context.Background(), models.NewAuditEntry{Action: models.ActionLogin})
	require.NoError(t, err)

	entries, total, err := svc.Query(context.Background(), repo.AuditFilter{
		ActorID: &actor, Action: models.ActionUpdate, EntityType: course,
	}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, entries, 3)
}

func TestRecordSwallowsFailure(t *testing.T) {
	store := memory.NewAuditEntries()
	store.FailInserts = errors.New("insert failed")
	svc := NewAuditService(store, nil)

	// Must not panic or surface the error.
	svc.Record(context.Background(), models.NewAuditEntry{Action: models.ActionCreate})
	assert.Empty(t, store.All())
}

func TestRecordThroughPool(t *testing.T) {
	store := memory.NewAuditEntries()
	wp := worker.NewPool(2)
	svc := NewAuditService(store, wp)

	for i := 0; i < 20; i++ {
		svc.Record(context.Background(), models.NewAuditEntry{
			Action:  models.ActionCreate,
			Changes: map[string]any{"seq": fmt.Sprint(i)},
		})
	}
	wp.Stop() // drains the queue

	assert.Len(t, store.All(), 20)
}

func TestGet(t *testing.T) {
	store := memory.NewAuditEntries()
	svc := NewAuditService(store, nil)
	inserted, err := store.Insert(context.Background(), models.NewAuditEntry{Action: models.ActionDelete})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), inserted.ID)
	require.NoError(t, err)
	assert.Equal(t, inserted.ID, got.ID)

	_, err = svc.Get(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

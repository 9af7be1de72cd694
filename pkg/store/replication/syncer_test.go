package replication_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/paduck86/distillai/internal/testenv"
	"github.com/paduck86/distillai/pkg/models"
	"github.com/paduck86/distillai/pkg/store"
	"github.com/paduck86/distillai/pkg/store/replication"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReplica struct {
	mu      sync.Mutex
	applied []string
	failOn  map[string]int
}

func (f *fakeReplica) Apply(ctx context.Context, c *models.ChangeTracking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[c.EntityID] > 0 {
		f.failOn[c.EntityID]--
		return errors.New("replica unavailable")
	}
	f.applied = append(f.applied, string(c.Operation)+" "+c.EntityID)
	return nil
}

func (f *fakeReplica) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.applied...)
}

func seed(t *testing.T, n int) (*fakeReplica, []*models.Node, store.ChangeTracker) {
	t.Helper()
	s := testenv.NewStore(t, testenv.WithChangeTracking())
	owner := models.NewUserID()
	nodes := make([]*models.Node, n)
	for i := range nodes {
		node, err := s.CreateNode(context.Background(), owner, store.NewNode{Kind: models.NodeKindPage})
		require.NoError(t, err)
		nodes[i] = node
	}
	return &fakeReplica{failOn: map[string]int{}}, nodes, s
}

func TestSyncOnceAppliesInOrder(t *testing.T) {
	ctx := context.Background()
	replica, nodes, src := seed(t, 5)

	syncer := replication.NewSyncer(src, replica, replication.Options{BatchSize: 2})
	res, err := syncer.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, replication.Result{Applied: 5}, res)

	want := make([]string, len(nodes))
	for i, n := range nodes {
		want[i] = "CREATE " + n.ID.String()
	}
	assert.Equal(t, want, replica.snapshot())

	stats, err := src.GetChangeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.PendingChanges)

	res, err = syncer.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, replication.Result{}, res)
}

func TestSyncOnceStopsAtFailure(t *testing.T) {
	ctx := context.Background()
	replica, nodes, src := seed(t, 3)
	replica.failOn[nodes[1].ID.String()] = 1

	syncer := replication.NewSyncer(src, replica, replication.Options{})
	res, err := syncer.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, replication.Result{Applied: 1, Failed: 1}, res)
	assert.Equal(t, []string{"CREATE " + nodes[0].ID.String()}, replica.snapshot())

	pending, err := src.ListUnprocessedChanges(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "replica unavailable", pending[0].ErrorMessage)

	res, err = syncer.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, replication.Result{Applied: 2}, res)
	assert.Len(t, replica.snapshot(), 3)
}

func TestSyncOnceSkipsExhaustedChanges(t *testing.T) {
	ctx := context.Background()
	replica, nodes, src := seed(t, 2)
	replica.failOn[nodes[0].ID.String()] = 100

	syncer := replication.NewSyncer(src, replica, replication.Options{MaxRetries: 2})
	for i := 0; i < 2; i++ {
		res, err := syncer.SyncOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Failed)
	}

	res, err := syncer.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, replication.Result{Applied: 1, Skipped: 1}, res)
	assert.Equal(t, []string{"CREATE " + nodes[1].ID.String()}, replica.snapshot())
}

func TestSyncOncePagesPastExhaustedBatch(t *testing.T) {
	ctx := context.Background()
	replica, nodes, src := seed(t, 3)
	replica.failOn[nodes[0].ID.String()] = 100
	replica.failOn[nodes[1].ID.String()] = 100

	syncer := replication.NewSyncer(src, replica, replication.Options{MaxRetries: 1, BatchSize: 2})

	res, err := syncer.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, replication.Result{Failed: 1}, res)

	res, err = syncer.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, replication.Result{Failed: 1, Skipped: 1}, res)

	// both exhausted changes fill the first batch
	res, err = syncer.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, replication.Result{Applied: 1, Skipped: 2}, res)
	assert.Equal(t, []string{"CREATE " + nodes[2].ID.String()}, replica.snapshot())

	res, err = syncer.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, replication.Result{Skipped: 2}, res)
}

func TestRunStopsWithContext(t *testing.T) {
	replica, nodes, src := seed(t, 2)
	ctx, cancel := context.WithCancel(context.Background())

	syncer := replication.NewSyncer(src, replica, replication.Options{})
	done := make(chan error, 1)
	go func() {
		done <- syncer.Run(ctx, 10*time.Millisecond)
	}()

	require.Eventually(t, func() bool {
		return len(replica.snapshot()) == len(nodes)
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

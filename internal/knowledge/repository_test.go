package knowledge

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmoran41/dealership-ai-assistant/pkg/logging"
)

func newTestRepo(t *testing.T) (*RedisPassageRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisPassageRepository(client), mr
}

func TestRepositoryAppendAndGet(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AppendPassages(ctx, "civic-2025", []string{"a", "b"}))
	require.NoError(t, repo.AppendPassages(ctx, "civic-2025", []string{"c"}))

	passages, err := repo.GetPassages(ctx, "civic-2025")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, passages, "ingestion order is preserved")
}

func TestRepositoryVersioning(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	v, err := repo.GetVersion(ctx, "civic-2025")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	require.NoError(t, repo.SetVersion(ctx, "civic-2025", 3))
	v, err = repo.GetVersion(ctx, "civic-2025")
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
}

func TestRepositoryListPartitions(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.AppendPassages(ctx, "civic-2025", []string{"a"}))
	require.NoError(t, repo.AppendPassages(ctx, "ridgeline-2025", []string{"b"}))
	require.NoError(t, repo.SetVersion(ctx, "civic-2025", 1))

	partitions, err := repo.ListPartitions(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"civic-2025", "ridgeline-2025"}, partitions,
		"version keys must not appear as partitions")
}

func TestRepositoryUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := NewRedisPassageRepository(client)
	mr.Close()

	_, err := repo.GetPassages(context.Background(), "civic-2025")
	assert.ErrorIs(t, err, ErrRetrievalUnavailable)
}

func TestHydratingRetrieverEmbedsNewPassages(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.AppendPassages(ctx, "civic-2025", []string{"first", "second"}))

	embedder := &fakeEmbedder{vectors: map[string][]float32{}}
	store := NewMemoryVectorStore(embedder, logging.Default())
	h := NewHydratingRetriever(ctx, repo, store, logging.Default())

	passages, err := h.Retrieve(ctx, "civic-2025", "anything", 10)
	require.NoError(t, err)
	assert.Len(t, passages, 2)

	// Appending to the repo is picked up on the next query.
	require.NoError(t, repo.AppendPassages(ctx, "civic-2025", []string{"third"}))
	passages, err = h.Retrieve(ctx, "civic-2025", "anything", 10)
	require.NoError(t, err)
	assert.Len(t, passages, 3)
	assert.Equal(t, 3, store.Count("civic-2025"))
}

func TestHydratingRetrieverRebuildsOnVersionBump(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.AppendPassages(ctx, "civic-2025", []string{"old"}))

	embedder := &fakeEmbedder{vectors: map[string][]float32{}}
	store := NewMemoryVectorStore(embedder, logging.Default())
	h := NewHydratingRetriever(ctx, repo, store, logging.Default())

	// Ingestion job replaces the partition and bumps the version.
	mr.Del(passageKey("civic-2025"))
	require.NoError(t, repo.AppendPassages(ctx, "civic-2025", []string{"new one", "new two"}))
	require.NoError(t, repo.SetVersion(ctx, "civic-2025", 1))

	passages, err := h.Retrieve(ctx, "civic-2025", "anything", 10)
	require.NoError(t, err)
	require.Len(t, passages, 2)
	assert.Equal(t, "new one", passages[0].Text)
}

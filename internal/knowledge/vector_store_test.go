package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmoran41/dealership-ai-assistant/pkg/logging"
)

// fakeEmbedder maps known strings to fixed vectors so similarity is
// predictable, and defaults to an orthogonal junk vector otherwise.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fakeEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		if v, ok := f.vectors[in]; ok {
			out[i] = v
		} else {
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

func TestRetrieveRanksByScore(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"oil capacity":            {1, 0, 0},
		"engine oil holds 4.4 qt": {0.9, 0.1, 0},
		"tire pressure is 35 psi": {0, 1, 0},
		"wiper blade replacement": {0.1, 0.9, 0},
	}}
	store := NewMemoryVectorStore(embedder, logging.Default())
	ctx := context.Background()

	require.NoError(t, store.AddPassages(ctx, "civic-2025", []string{
		"tire pressure is 35 psi",
		"engine oil holds 4.4 qt",
		"wiper blade replacement",
	}))

	passages, err := store.Retrieve(ctx, "civic-2025", "oil capacity", 2)
	require.NoError(t, err)
	require.Len(t, passages, 2)
	assert.Equal(t, "engine oil holds 4.4 qt", passages[0].Text)
	assert.Greater(t, passages[0].Score, passages[1].Score)
}

func TestRetrieveBreaksTiesByIngestionOrder(t *testing.T) {
	// Every unknown passage embeds to the same vector, so all scores tie.
	embedder := &fakeEmbedder{vectors: map[string][]float32{}}
	store := NewMemoryVectorStore(embedder, logging.Default())
	ctx := context.Background()

	require.NoError(t, store.AddPassages(ctx, "civic-2025", []string{"first", "second", "third"}))

	passages, err := store.Retrieve(ctx, "civic-2025", "anything", 3)
	require.NoError(t, err)
	require.Len(t, passages, 3)
	assert.Equal(t, []string{"first", "second", "third"},
		[]string{passages[0].Text, passages[1].Text, passages[2].Text})
}

func TestRetrievePartitionIsolation(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{}}
	store := NewMemoryVectorStore(embedder, logging.Default())
	ctx := context.Background()

	require.NoError(t, store.AddPassages(ctx, "civic-2025", []string{"civic passage"}))
	require.NoError(t, store.AddPassages(ctx, "ridgeline-2025", []string{"ridgeline passage"}))

	passages, err := store.Retrieve(ctx, "civic-2025", "anything", 10)
	require.NoError(t, err)
	require.Len(t, passages, 1)
	assert.Equal(t, "civic passage", passages[0].Text)
}

func TestRetrieveFewerThanTopKIsNotAnError(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{}}
	store := NewMemoryVectorStore(embedder, logging.Default())
	ctx := context.Background()

	passages, err := store.Retrieve(ctx, "passport-2026", "anything", 10)
	require.NoError(t, err)
	assert.Empty(t, passages)
}

func TestRetrieveRequiresPartition(t *testing.T) {
	store := NewMemoryVectorStore(&fakeEmbedder{}, logging.Default())
	_, err := store.Retrieve(context.Background(), "", "q", 5)
	assert.Error(t, err)
}

func TestRetrieveWrapsBackendFailure(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("connection refused")}
	store := NewMemoryVectorStore(embedder, logging.Default())

	_, err := store.Retrieve(context.Background(), "civic-2025", "q", 5)
	assert.ErrorIs(t, err, ErrRetrievalUnavailable)
}

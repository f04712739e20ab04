package knowledge

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/jmoran41/dealership-ai-assistant/pkg/logging"
)

// MemoryVectorStore keeps embedded passages in memory, partitioned by vehicle,
// and ranks them by cosine similarity. Partitions are fully isolated: a query
// against one partition never sees another partition's passages.
type MemoryVectorStore struct {
	embedder EmbeddingClient
	logger   *logging.Logger

	mu         sync.RWMutex
	partitions map[string][]storedPassage
}

type storedPassage struct {
	text      string
	embedding []float32
	seq       int
}

// NewMemoryVectorStore creates an empty store backed by the given embedder.
func NewMemoryVectorStore(embedder EmbeddingClient, logger *logging.Logger) *MemoryVectorStore {
	if embedder == nil {
		panic("knowledge: embedder cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &MemoryVectorStore{
		embedder:   embedder,
		logger:     logger,
		partitions: make(map[string][]storedPassage),
	}
}

// AddPassages embeds and appends passages to a partition, preserving
// ingestion order for deterministic tie-breaks.
func (s *MemoryVectorStore) AddPassages(ctx context.Context, partition string, texts []string) error {
	if partition == "" {
		return fmt.Errorf("knowledge: partition is required")
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("knowledge: embed passages: %w: %w", ErrRetrievalUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	base := len(s.partitions[partition])
	for i, text := range texts {
		s.partitions[partition] = append(s.partitions[partition], storedPassage{
			text:      text,
			embedding: vectors[i],
			seq:       base + i,
		})
	}
	return nil
}

// ReplacePassages drops a partition and re-ingests it from scratch.
func (s *MemoryVectorStore) ReplacePassages(ctx context.Context, partition string, texts []string) error {
	s.mu.Lock()
	delete(s.partitions, partition)
	s.mu.Unlock()
	return s.AddPassages(ctx, partition, texts)
}

// Count returns the number of passages stored for a partition.
func (s *MemoryVectorStore) Count(partition string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.partitions[partition])
}

// Retrieve ranks the partition's passages against the query. Results are
// ordered by descending score; equal scores fall back to ingestion order.
// Returning fewer than topK (including zero) passages is not an error.
func (s *MemoryVectorStore) Retrieve(ctx context.Context, partition, query string, topK int) ([]Passage, error) {
	if partition == "" {
		return nil, fmt.Errorf("knowledge: retrieve called without a partition")
	}
	if topK <= 0 {
		topK = 12
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("knowledge: embed query: %w: %w", ErrRetrievalUnavailable, err)
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	queryVec := vectors[0]

	s.mu.RLock()
	candidates := s.partitions[partition]
	results := make([]Passage, 0, len(candidates))
	for _, doc := range candidates {
		results = append(results, Passage{
			Text:  doc.text,
			Score: cosineSimilarity(queryVec, doc.embedding),
			Seq:   doc.seq,
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Seq < results[j].Seq
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

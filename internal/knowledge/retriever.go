package knowledge

import (
	"context"
	"errors"
)

// ErrRetrievalUnavailable indicates the retrieval backend (embedding service
// or passage storage) could not be reached. Callers should degrade to a
// canned "can't access the manual" reply instead of synthesizing an answer
// with no evidence.
var ErrRetrievalUnavailable = errors.New("knowledge: retrieval backend unavailable")

// Passage is one embedded chunk of manual text returned for a query.
// Seq is the stable ingestion position inside its partition and breaks
// score ties deterministically.
type Passage struct {
	Text  string
	Score float64
	Seq   int
}

// Retriever returns ranked passages from a single vehicle partition.
// Querying without a resolved partition is a caller error.
type Retriever interface {
	Retrieve(ctx context.Context, partition, query string, topK int) ([]Passage, error)
}

// EmptyRetriever always returns no passages. Used when no embedding backend
// is configured so the dialogue core can still run and degrade gracefully.
type EmptyRetriever struct{}

// NewEmptyRetriever creates a retriever with no content.
func NewEmptyRetriever() *EmptyRetriever {
	return &EmptyRetriever{}
}

// Retrieve returns no passages for every query.
func (r *EmptyRetriever) Retrieve(ctx context.Context, partition, query string, topK int) ([]Passage, error) {
	return nil, nil
}

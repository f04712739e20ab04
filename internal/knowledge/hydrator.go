package knowledge

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoran41/dealership-ai-assistant/pkg/logging"
)

// HydratingRetriever wraps a MemoryVectorStore and keeps it current with the
// passage repository before each query. Passages are append-only per partition
// unless the ingestion job bumps the version, in which case the partition is
// re-embedded from scratch.
type HydratingRetriever struct {
	repo   PassageRepository
	store  *MemoryVectorStore
	logger *logging.Logger

	hydratedCounts sync.Map // partition -> int
	hydratedVers   sync.Map // partition -> int64
	locks          sync.Map // partition -> *sync.Mutex
}

// NewHydratingRetriever seeds hydration state from the repository so startup
// does not re-embed passages that are already in the store.
func NewHydratingRetriever(ctx context.Context, repo PassageRepository, store *MemoryVectorStore, logger *logging.Logger) *HydratingRetriever {
	if repo == nil {
		panic("knowledge: passage repository cannot be nil")
	}
	if store == nil {
		panic("knowledge: vector store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	h := &HydratingRetriever{repo: repo, store: store, logger: logger}

	partitions, err := repo.ListPartitions(ctx)
	if err != nil {
		logger.Warn("failed to list manual partitions at startup", "error", err)
		return h
	}
	for _, partition := range partitions {
		if err := h.ensureHydrated(ctx, partition); err != nil {
			logger.Warn("failed to hydrate manual partition", "partition", partition, "error", err)
		}
	}
	return h
}

// Retrieve hydrates the partition if needed, then queries the vector store.
func (h *HydratingRetriever) Retrieve(ctx context.Context, partition, query string, topK int) ([]Passage, error) {
	if partition == "" {
		return nil, fmt.Errorf("knowledge: retrieve called without a partition")
	}
	if err := h.ensureHydrated(ctx, partition); err != nil {
		return nil, err
	}
	return h.store.Retrieve(ctx, partition, query, topK)
}

func (h *HydratingRetriever) ensureHydrated(ctx context.Context, partition string) error {
	lock := h.lockFor(partition)
	lock.Lock()
	defer lock.Unlock()

	passages, err := h.repo.GetPassages(ctx, partition)
	if err != nil {
		return err
	}

	version, err := h.repo.GetVersion(ctx, partition)
	if err != nil {
		return err
	}
	storedVersion := int64(0)
	if v, ok := h.hydratedVers.Load(partition); ok {
		storedVersion, _ = v.(int64)
	}
	if version != storedVersion {
		if err := h.store.ReplacePassages(ctx, partition, passages); err != nil {
			return err
		}
		h.hydratedCounts.Store(partition, len(passages))
		h.hydratedVers.Store(partition, version)
		h.logger.Info("re-ingested manual partition", "partition", partition, "passages", len(passages), "version", version)
		return nil
	}

	start := 0
	if v, ok := h.hydratedCounts.Load(partition); ok {
		start, _ = v.(int)
	}
	if start > len(passages) {
		// Repository shrank without a version bump; rebuild to stay consistent.
		if err := h.store.ReplacePassages(ctx, partition, passages); err != nil {
			return err
		}
		h.hydratedCounts.Store(partition, len(passages))
		return nil
	}
	if start >= len(passages) {
		return nil
	}

	if err := h.store.AddPassages(ctx, partition, passages[start:]); err != nil {
		return err
	}
	h.hydratedCounts.Store(partition, len(passages))
	return nil
}

func (h *HydratingRetriever) lockFor(partition string) *sync.Mutex {
	lockAny, _ := h.locks.LoadOrStore(partition, &sync.Mutex{})
	return lockAny.(*sync.Mutex)
}

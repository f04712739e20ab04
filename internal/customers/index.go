package customers

import (
	"errors"
	"strings"

	"github.com/jmoran41/dealership-ai-assistant/pkg/logging"
)

// ErrNoRecords indicates the loaded data contained no usable customer rows.
// Startup should treat this as fatal: the matcher would answer nothing.
var ErrNoRecords = errors.New("customers: no usable records loaded")

// Row is one raw service-record line as exported from the shop system.
type Row struct {
	Tag     string
	RO      string
	Vehicle string
	Name    string
	Phone   string
	Service string
}

// Record is the merged, immutable view of one customer across all their visits.
type Record struct {
	Name        string
	Phone       string // normalized ten-digit key
	Vehicles    []string
	LastService string
	VisitCount  int
}

// Index resolves normalized phone numbers to customer records.
// Built once at startup; read-only afterwards, safe for concurrent use.
type Index struct {
	byPhone map[string]Record
	skipped int
}

// BuildIndex merges raw rows into per-customer records keyed by normalized
// phone. Merging is deterministic: rows are processed in input order, the
// later row wins on name and last service, vehicles accumulate as a union in
// first-seen order, and visit count is the number of rows for that phone.
// Malformed rows (no usable phone or empty name) are skipped and counted.
func BuildIndex(rows []Row, logger *logging.Logger) (*Index, error) {
	if logger == nil {
		logger = logging.Default()
	}

	idx := &Index{byPhone: make(map[string]Record)}
	for _, row := range rows {
		phone := NormalizePhone(row.Phone)
		name := strings.ToUpper(strings.TrimSpace(row.Name))
		if phone == "" || name == "" {
			idx.skipped++
			continue
		}

		rec := idx.byPhone[phone]
		rec.Phone = phone
		rec.Name = name
		if svc := strings.TrimSpace(row.Service); svc != "" {
			rec.LastService = svc
		}
		if vehicle := strings.TrimSpace(row.Vehicle); vehicle != "" {
			if !containsFold(rec.Vehicles, vehicle) {
				rec.Vehicles = append(rec.Vehicles, vehicle)
			}
		}
		rec.VisitCount++
		idx.byPhone[phone] = rec
	}

	if idx.skipped > 0 {
		logger.Warn("skipped malformed customer rows", "skipped", idx.skipped, "loaded", len(idx.byPhone))
	}
	if len(idx.byPhone) == 0 {
		return nil, ErrNoRecords
	}

	logger.Info("customer index built", "customers", len(idx.byPhone), "rows", len(rows), "skipped", idx.skipped)
	return idx, nil
}

// Lookup resolves a normalized phone to its record. Exact match only; fuzzy
// matching across different numbers would leak one customer's history into
// another's conversation.
func (idx *Index) Lookup(normalizedPhone string) (Record, bool) {
	rec, ok := idx.byPhone[normalizedPhone]
	return rec, ok
}

// Size returns the number of unique customers in the index.
func (idx *Index) Size() int {
	return len(idx.byPhone)
}

// SkippedRows reports how many raw rows were rejected during the build.
func (idx *Index) SkippedRows() int {
	return idx.skipped
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}

package customers

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmoran41/dealership-ai-assistant/pkg/logging"
)

// LoadCSVDir reads every service-record CSV in dir and returns the raw rows in
// file order. Column headers vary across yearly exports, so they are matched
// loosely ("PHONE #", "Phone Number", ... all map to the phone column).
// A file that cannot be opened or parsed is logged and skipped; the loader
// only fails when no file yields any rows.
func LoadCSVDir(dir string, logger *logging.Logger) ([]Row, error) {
	if logger == nil {
		logger = logging.Default()
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("customers: glob %s: %w", dir, err)
	}
	sort.Strings(matches)

	var rows []Row
	for _, path := range matches {
		fileRows, err := loadCSVFile(path)
		if err != nil {
			logger.Error("failed to load customer file", "file", filepath.Base(path), "error", err)
			continue
		}
		logger.Info("loaded customer file", "file", filepath.Base(path), "rows", len(fileRows))
		rows = append(rows, fileRows...)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("customers: no rows in %s: %w", dir, ErrNoRecords)
	}
	return rows, nil
}

func loadCSVFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := mapColumns(header)

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A single mangled line should not sink the whole export.
			continue
		}
		rows = append(rows, Row{
			Tag:     field(record, cols["tag"]),
			RO:      field(record, cols["ro"]),
			Vehicle: field(record, cols["vehicle"]),
			Name:    field(record, cols["name"]),
			Phone:   field(record, cols["phone"]),
			Service: field(record, cols["service"]),
		})
	}
	return rows, nil
}

// mapColumns matches loosely-named headers to canonical column indexes.
func mapColumns(header []string) map[string]int {
	cols := map[string]int{"tag": -1, "ro": -1, "vehicle": -1, "name": -1, "phone": -1, "service": -1}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(key, "tag"):
			cols["tag"] = i
		case strings.Contains(key, "ro"):
			cols["ro"] = i
		case strings.Contains(key, "make"), strings.Contains(key, "model"), strings.Contains(key, "vehicle"):
			cols["vehicle"] = i
		case key == "name" || strings.Contains(key, "customer"):
			cols["name"] = i
		case strings.Contains(key, "phone"):
			cols["phone"] = i
		case strings.Contains(key, "description"), strings.Contains(key, "service"):
			cols["service"] = i
		}
	}
	return cols
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

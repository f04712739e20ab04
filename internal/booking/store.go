package booking

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Appointment is the durable record written when a booking is submitted.
// The dialogue core only ever appends; advisors consume the file out of band.
type Appointment struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Vehicle   string    `json:"vehicle"`
	Service   string    `json:"service_type"`
	Date      string    `json:"preferred_date"`
	Time      string    `json:"preferred_time"`
	CreatedAt time.Time `json:"created_at"`

	// Customer-history snapshot when the phone matched a known customer.
	Returning   bool   `json:"returning,omitempty"`
	VisitCount  int    `json:"visit_count,omitempty"`
	LastService string `json:"last_service,omitempty"`
}

// NewAppointment builds an appointment from a complete draft.
func NewAppointment(d Draft) Appointment {
	return Appointment{
		ID:        uuid.NewString(),
		Name:      d.Name,
		Phone:     d.Phone,
		Vehicle:   d.Vehicle,
		Service:   d.Service,
		Date:      d.Date,
		Time:      d.Time,
		CreatedAt: time.Now().UTC(),
	}
}

// Store persists submitted appointments.
type Store interface {
	Append(ctx context.Context, appt Appointment) error
}

// FileStore appends appointments to a JSON-lines file, one record per line.
// Appends are serialized by a mutex; the file is opened per write so the
// process never holds the handle across restarts.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates the parent directory if needed.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("booking: store path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("booking: create store dir: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

// Append writes one appointment as a single JSON line.
func (s *FileStore) Append(_ context.Context, appt Appointment) error {
	data, err := json.Marshal(appt)
	if err != nil {
		return fmt.Errorf("booking: encode appointment: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("booking: open appointments file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("booking: write appointment: %w", err)
	}
	return nil
}

// ReadAll loads every stored appointment. Not used on the hot path; it exists
// for ops tooling and round-trip verification.
func (s *FileStore) ReadAll() ([]Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("booking: open appointments file: %w", err)
	}
	defer f.Close()

	var appts []Appointment
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var appt Appointment
		if err := json.Unmarshal(line, &appt); err != nil {
			return nil, fmt.Errorf("booking: decode appointment line: %w", err)
		}
		appts = append(appts, appt)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("booking: scan appointments file: %w", err)
	}
	return appts, nil
}

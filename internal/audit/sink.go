package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Sink writes audit records to per-feature JSONL files.
// Appends use O_APPEND so concurrent writers from multiple processes stay
// line-atomic; within a process a mutex keeps record order total per feature.
type Sink struct {
	dir string
	mu  sync.Mutex
}

// NewSink creates a sink rooted at dir, creating the directory if needed.
func NewSink(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit dir: %w", err)
	}
	return &Sink{dir: dir}, nil
}

// Dir returns the sink's root directory.
func (s *Sink) Dir() string {
	return s.dir
}

// Write appends one record to its feature partition. The write is flushed
// before return so a caller-visible response implies a durable record.
func (s *Sink) Write(record Record) error {
	if !ValidFeatureID(record.FeatureID) {
		return fmt.Errorf("invalid feature id %q", record.FeatureID)
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// 0600: question/answer bodies may carry sensitive project detail.
	file, err := os.OpenFile(s.partitionPath(record.FeatureID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open audit partition: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}
	return nil
}

// List reads all records for a feature in insertion order.
// A missing partition returns an empty slice, not an error.
func (s *Sink) List(featureID string) ([]Record, error) {
	file, err := os.Open(s.partitionPath(featureID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit partition: %w", err)
	}
	defer func() { _ = file.Close() }()

	var records []Record
	scanner := bufio.NewScanner(file)

	// Large answers can exceed the default scanner buffer (1MB max line).
	const maxLineSize = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record Record
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("failed to parse audit record on line %d: %w", lineNum, err)
		}
		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit partition: %w", err)
	}
	return records, nil
}

// Chain walks parent_id links backwards from recordID to the root exchange
// and returns the chain in chronological order. Unknown IDs yield nil.
func (s *Sink) Chain(recordID, featureID string) ([]Record, error) {
	all, err := s.List(featureID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Record, len(all))
	for _, r := range all {
		byID[r.ID] = r
	}

	if _, ok := byID[recordID]; !ok {
		return nil, nil
	}

	var chain []Record
	currentID := recordID
	for currentID != "" {
		record, ok := byID[currentID]
		if !ok {
			break
		}
		chain = append(chain, record)
		currentID = record.ParentID
	}

	// Walked child-to-root; flip to chronological.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// partitionPath returns the JSONL file for a feature.
func (s *Sink) partitionPath(featureID string) string {
	return filepath.Join(s.dir, featureID+".jsonl")
}

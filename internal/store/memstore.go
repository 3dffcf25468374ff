package store

import (
	"errors"
	"sort"
	"sync"

	"grantreview/internal/review"
)

// MemStore is an in-memory Store for tests and one-shot CLI runs.
// Reports are kept as JSON so callers never share pointers with the store.
type MemStore struct {
	mu       sync.RWMutex
	payloads map[string][]byte
	runs     map[string]*Run
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{payloads: make(map[string][]byte), runs: make(map[string]*Run)}
}

// SaveRun implements Store.
func (s *MemStore) SaveRun(rep *review.FinalReport) error {
	if rep == nil || rep.RunID == "" {
		return errors.New("save run: report has no run id")
	}
	payload, err := rep.Marshal()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads[rep.RunID] = payload
	s.runs[rep.RunID] = RunOf(rep)
	return nil
}

// GetRun implements Store.
func (s *MemStore) GetRun(runID string) (*review.FinalReport, error) {
	s.mu.RLock()
	payload, ok := s.payloads[runID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return review.UnmarshalReport(payload)
}

// ListRuns implements Store.
func (s *MemStore) ListRuns(f RunFilter) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Run
	for _, r := range s.runs {
		if f.match(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].RunID < out[j].RunID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// DeleteRun implements Store.
func (s *MemStore) DeleteRun(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.payloads, runID)
	delete(s.runs, runID)
	return nil
}

// CountByStatus implements Store.
func (s *MemStore) CountByStatus() (map[review.OverallStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[review.OverallStatus]int)
	for _, r := range s.runs {
		out[r.OverallStatus]++
	}
	return out, nil
}

// Close implements Store.
func (s *MemStore) Close() error { return nil }

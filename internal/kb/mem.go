package kb

import (
	"context"
	"sort"
	"sync"

	"grantreview/internal/pipeline"
)

// MemIndex is an in-memory knowledge base. It is safe for concurrent use.
type MemIndex struct {
	mu     sync.RWMutex
	orders map[string]Order
	chunks []Chunk
	emb    Embedder
}

// NewMemIndex returns an empty index. emb may be nil to disable rerank.
func NewMemIndex(emb Embedder) *MemIndex {
	return &MemIndex{orders: make(map[string]Order), emb: emb}
}

// LoadMemIndex loads a knowledge-base directory into memory.
func LoadMemIndex(dir string, emb Embedder) (*MemIndex, error) {
	orders, chunks, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	m := NewMemIndex(emb)
	m.Replace(orders, chunks)
	return m, nil
}

// Replace swaps the whole corpus.
func (m *MemIndex) Replace(orders []Order, chunks []Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = make(map[string]Order, len(orders))
	for _, o := range orders {
		m.orders[o.EONumber] = o
	}
	m.chunks = append([]Chunk(nil), chunks...)
}

// Search implements pipeline.Searcher.
func (m *MemIndex) Search(ctx context.Context, query string, topK int) ([]pipeline.Passage, error) {
	m.mu.RLock()
	chunks, orders := m.chunks, m.orders
	m.mu.RUnlock()
	return search(ctx, chunks, orders, query, topK, m.emb)
}

// List returns every order sorted by EO number.
func (m *MemIndex) List(context.Context) ([]Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EONumber < out[j].EONumber })
	return out, nil
}

// Get returns one order and its chunks, or ErrNotFound.
func (m *MemIndex) Get(_ context.Context, eoNumber string) (Order, []Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[eoNumber]
	if !ok {
		return Order{}, nil, ErrNotFound
	}
	var chunks []Chunk
	for _, c := range m.chunks {
		if c.EONumber == eoNumber {
			chunks = append(chunks, c)
		}
	}
	return o, chunks, nil
}

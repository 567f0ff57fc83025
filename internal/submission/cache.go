package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// LocalCache is the durable, append-only backup of every submitted record.
// Implementations keep the whole list under a single named key and rewrite it
// on each append.
type LocalCache interface {
	Append(ctx context.Context, rec Record) error
	List(ctx context.Context) ([]Record, error)
}

// appendRecord decodes the stored list, appends rec and re-encodes it.
func appendRecord(stored []byte, rec Record) ([]byte, error) {
	records, err := decodeRecords(stored)
	if err != nil {
		return nil, err
	}
	records = append(records, rec)
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode local cache: %w", err)
	}
	return data, nil
}

func decodeRecords(stored []byte) ([]Record, error) {
	records := []Record{}
	if len(stored) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(stored, &records); err != nil {
		return nil, fmt.Errorf("decode local cache: %w", err)
	}
	return records, nil
}

// MemoryCache keeps the serialized list in process memory.
type MemoryCache struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (m *MemoryCache) Append(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := appendRecord(m.data, rec)
	if err != nil {
		return err
	}
	m.data = data
	return nil
}

func (m *MemoryCache) List(ctx context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return decodeRecords(m.data)
}

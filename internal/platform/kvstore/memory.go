package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory: インメモリ実装。dev モードとテストで使用する。
// 値は JSON バイト列で保持する（MySQL 実装と同じ表現に揃える）。
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]json.RawMessage
	configured  []string
	opened      bool
}

func NewMemory(collections ...string) *Memory {
	if len(collections) == 0 {
		collections = DefaultCollections()
	}
	return &Memory{configured: collections}
}

func (m *Memory) Open(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.opened {
		return nil
	}
	m.collections = make(map[string]map[string]json.RawMessage, len(m.configured))
	for _, c := range m.configured {
		m.collections[c] = make(map[string]json.RawMessage)
	}
	m.opened = true
	return nil
}

func (m *Memory) items(collection string) (map[string]json.RawMessage, error) {
	if !m.opened {
		return nil, ErrStorageUnavailable
	}
	items, ok := m.collections[collection]
	if !ok {
		return nil, fmt.Errorf("unknown collection: %s", collection)
	}
	return items, nil
}

func (m *Memory) Add(_ context.Context, collection, key string, item any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items, err := m.items(collection)
	if err != nil {
		return persistErr("add", collection, err)
	}
	if _, exists := items[key]; exists {
		return ErrDuplicateKey
	}
	body, err := json.Marshal(item)
	if err != nil {
		return persistErr("add", collection, err)
	}
	items[key] = body
	return nil
}

func (m *Memory) GetAll(_ context.Context, collection string) ([]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items, err := m.items(collection)
	if err != nil {
		return nil, persistErr("getAll", collection, err)
	}
	out := make([]json.RawMessage, 0, len(items))
	for _, body := range items {
		out = append(out, append(json.RawMessage(nil), body...))
	}
	return out, nil
}

func (m *Memory) GetByKey(_ context.Context, collection, key string, dst any) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items, err := m.items(collection)
	if err != nil {
		return false, persistErr("getByKey", collection, err)
	}
	body, ok := items[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return false, persistErr("getByKey", collection, err)
	}
	return true, nil
}

func (m *Memory) Update(_ context.Context, collection, key string, item any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items, err := m.items(collection)
	if err != nil {
		return persistErr("update", collection, err)
	}
	body, err := json.Marshal(item)
	if err != nil {
		return persistErr("update", collection, err)
	}
	items[key] = body
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items, err := m.items(collection)
	if err != nil {
		return persistErr("delete", collection, err)
	}
	delete(items, key)
	return nil
}

func (m *Memory) Clear(_ context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.items(collection); err != nil {
		return persistErr("clear", collection, err)
	}
	m.collections[collection] = make(map[string]json.RawMessage)
	return nil
}

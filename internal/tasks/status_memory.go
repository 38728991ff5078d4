package tasks

import (
	"context"
	"sync"
)

type MemoryStatusStore struct {
	mu    sync.RWMutex
	tasks map[string]TaskInfo
}

func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{tasks: make(map[string]TaskInfo)}
}

func (m *MemoryStatusStore) Put(_ context.Context, info TaskInfo) error {
	m.mu.Lock()
	m.tasks[info.ID] = info
	m.mu.Unlock()
	return nil
}

func (m *MemoryStatusStore) Get(_ context.Context, id string) (TaskInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.tasks[id]
	if !ok {
		return TaskInfo{}, ErrTaskNotFound
	}
	return info, nil
}

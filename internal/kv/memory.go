package kv

import (
	"context"
	"fmt"
	"sync"
)

// memoryStore — потокобезопасное in-memory хранилище.
// Durable-гарантий не даёт; используется в тестах и в демо-режиме --memory.
type memoryStore struct {
	mu     sync.RWMutex
	data   map[string]string
	closed bool
}

// NewMemory создаёт пустое in-memory хранилище.
func NewMemory() Store {
	return &memoryStore{data: make(map[string]string)}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	const op = "kv.memory.Get"

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", fmt.Errorf("%s: %w", op, ErrClosed)
	}

	v, ok := s.data[key]
	if !ok {
		return "", fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return v, nil
}

func (s *memoryStore) Set(_ context.Context, key, value string) error {
	const op = "kv.memory.Set"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%s: %w", op, ErrClosed)
	}

	s.data[key] = value

	return nil
}

func (s *memoryStore) Remove(_ context.Context, key string) error {
	const op = "kv.memory.Remove"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%s: %w", op, ErrClosed)
	}

	delete(s.data, key)

	return nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.data = nil

	return nil
}

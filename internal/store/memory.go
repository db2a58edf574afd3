package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

type memObject struct {
	data        []byte
	contentType string
}

// Memory is an in-process Store for tests. It also acts as an Opener over a
// single bucket, and can force individual operations to fail so transport
// error propagation can be exercised without a real backend.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memObject
	faults  map[string]error
}

func NewMemory() *Memory {
	return &Memory{
		objects: make(map[string]memObject),
		faults:  make(map[string]error),
	}
}

// Fail forces every subsequent call of op ("put", "get", "head", "delete")
// to return err. Pass nil to clear.
func (m *Memory) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.faults, op)
		return
	}
	m.faults[op] = err
}

func (m *Memory) fault(op string) error {
	return m.faults[op]
}

func (m *Memory) Bucket(string) Store { return m }

func (m *Memory) Put(_ context.Context, key, contentType string, r io.Reader) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault("put"); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = memObject{data: data, contentType: contentType}
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fault("get"); err != nil {
		return nil, err
	}
	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *Memory) Head(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fault("head"); err != nil {
		return false, err
	}
	_, ok := m.objects[key]
	return ok, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault("delete"); err != nil {
		return err
	}
	delete(m.objects, key)
	return nil
}

// Bytes returns a stored object's content for test assertions.
func (m *Memory) Bytes(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj.data, ok
}

// ContentType returns a stored object's content type.
func (m *Memory) ContentType(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj.contentType, ok
}

// Keys lists all stored keys, sorted.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

package manager

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ggufd/internal/llamacpp"
)

// createModelFile creates a file of approximately sizeKB kilobytes and returns its path.
func createModelFile(t *testing.T, dir, name string, sizeKB int) string {
	t.Helper()
	if sizeKB <= 0 {
		sizeKB = 1
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, make([]byte, sizeKB*1024), 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}
	return p
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

// newTestManager wires a Manager to rt with an in-memory publisher.
func newTestManager(t *testing.T, rt llamacpp.Runtime, mutate ...func(*ManagerConfig)) (*Manager, *MemoryPublisher) {
	t.Helper()
	pub := NewMemoryPublisher()
	cfg := ManagerConfig{Runtime: rt, Publisher: pub}
	for _, f := range mutate {
		f(&cfg)
	}
	return NewWithConfig(cfg), pub
}

// loadedManager returns a manager with a fake model already resident.
func loadedManager(t *testing.T, rt *llamacpp.FakeRuntime, contextSize uint32, mutate ...func(*ManagerConfig)) (*Manager, string) {
	t.Helper()
	m, _ := newTestManager(t, rt, mutate...)
	p := createModelFile(t, t.TempDir(), "tiny-q4_0.gguf", 1)
	if _, err := m.Load(testCtx(t), p, contextSize, 0); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m, p
}

func publisherOf(m *Manager) *MemoryPublisher { return m.publisher.(*MemoryPublisher) }

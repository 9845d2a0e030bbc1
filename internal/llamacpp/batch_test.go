package llamacpp

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBatch_AddAndClear(t *testing.T) {
	b := NewBatch(2)
	if err := b.Add(1, 0, false); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := b.Add(2, 1, true); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := b.Add(3, 2, false); err == nil {
		t.Fatalf("expected error when batch is full")
	}
	if b.Len() != 2 || b.Cap() != 2 || !b.Logits[1] || b.Logits[0] {
		t.Fatalf("unexpected batch: %+v", b)
	}
	b.Clear()
	if b.Len() != 0 || b.Cap() != 2 {
		t.Fatalf("Clear: len=%d cap=%d", b.Len(), b.Cap())
	}
	if err := b.Add(4, -1, false); err == nil {
		t.Fatalf("expected error for negative position")
	}
	if NewBatch(0).Cap() != 1 {
		t.Fatalf("capacity should be at least 1")
	}
}

func TestDetectCapability(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "llava-7b-q4_k_m.gguf")
	if err := os.WriteFile(model, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := DetectCapability(model); got != TextOnly {
		t.Fatalf("got %s without projector", got)
	}
	if err := os.WriteFile(filepath.Join(dir, "mmproj-model-f16.gguf"), nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := DetectCapability(model); got != VisionCapable {
		t.Fatalf("got %s with projector", got)
	}
}

package httpapi

import "testing"

func TestSetMaxBodyBytes_DefaultWhenNonPositive(t *testing.T) {
	SetMaxBodyBytes(-1)
	if maxBodyBytes != 64<<20 {
		t.Fatalf("expected default 64MiB, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(0)
	if maxBodyBytes != 64<<20 {
		t.Fatalf("expected default 64MiB on zero, got %d", maxBodyBytes)
	}
}

func TestSetMaxBodyBytes_PositiveSetsValue(t *testing.T) {
	defer SetMaxBodyBytes(0)
	SetMaxBodyBytes(1234)
	if maxBodyBytes != 1234 {
		t.Fatalf("expected 1234, got %d", maxBodyBytes)
	}
}

func TestSetGenerateTimeoutSeconds_NormalizesNegativeToZero(t *testing.T) {
	defer SetGenerateTimeoutSeconds(0)
	SetGenerateTimeoutSeconds(-5)
	if generateTimeout != 0 {
		t.Fatalf("expected 0, got %d", generateTimeout)
	}
	SetGenerateTimeoutSeconds(3)
	if generateTimeout != 3 || generateDeadline().Seconds() != 3 {
		t.Fatalf("expected 3, got %d", generateTimeout)
	}
}

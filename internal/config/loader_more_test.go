package config

import (
	"strings"
	"testing"
)

func TestLoad_NonexistentFile(t *testing.T) {
	if _, err := Load("/definitely/not/a/real/ggufd.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
}

func TestLoad_BadBatchWidth(t *testing.T) {
	cases := map[string]string{
		"bad.yaml": "addr: :8080\nbatch_width: wide\n",
		"bad.json": `{"addr": ":8080", "batch_width": -1}`,
		"bad.toml": "addr = ':8080'\nbatch_width = 'wide'\n",
	}
	d := t.TempDir()
	for name, content := range cases {
		p := writeTempFile(t, d, name, content)
		_, err := Load(p)
		if err == nil {
			t.Fatalf("%s: expected batch_width error", name)
		}
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("%s: error should name the file: %v", name, err)
		}
	}
}

func TestLoad_Malformed(t *testing.T) {
	cases := map[string]string{
		"broken.yaml": "addr: :8080\n: broken\n",
		"broken.json": `{ "addr": ":8080", "models_dir": }`,
		"broken.toml": "addr=:8080\nmodels_dir\n",
	}
	d := t.TempDir()
	for name, content := range cases {
		if _, err := Load(writeTempFile(t, d, name, content)); err == nil {
			t.Fatalf("%s: expected parse error", name)
		}
	}
}

func TestResolve_BadFileStopsBeforeEnv(t *testing.T) {
	t.Setenv(EnvPrefix+"BATCH_WIDTH", "64")
	p := writeTempFile(t, t.TempDir(), "bad.yaml", "batch_width: wide\n")
	if _, err := Resolve(p, ""); err == nil {
		t.Fatalf("expected Resolve to fail on bad config file")
	}
}

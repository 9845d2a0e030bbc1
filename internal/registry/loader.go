package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ggufd/internal/common/fsutil"
	"ggufd/pkg/types"
)

// LoadDir scans a directory for *.gguf files and builds a registry from filenames.
// ID is the full filename (including extension); Path is the absolute file path.
// Name, Quant and Family come from the same heuristics as Inspect.
// Multimodal projector files (mmproj*.gguf) are not models and are skipped.
func LoadDir(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !fsutil.IsGGUF(name) || strings.HasPrefix(strings.ToLower(name), "mmproj") {
			continue
		}
		md := describeName(name)
		mdl := types.Model{ID: name, Name: name, Path: filepath.Join(abs, name)}
		if md.Architecture != unknown {
			mdl.Family = md.Architecture
			mdl.Name = md.ModelType
		}
		if md.Quantization != unknown {
			mdl.Quant = md.Quantization
		}
		if info, err := e.Info(); err == nil {
			mdl.SizeBytes = info.Size()
		}
		models = append(models, mdl)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

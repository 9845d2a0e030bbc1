package registry

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"ggufd/internal/common/fsutil"
	"ggufd/pkg/types"
)

const unknown = "Unknown"

// paramSizes are matched as whole numbers so "13b" is not read as "3b".
var paramSizes = []struct {
	re    *regexp.Regexp
	label string
	// layers is the usual transformer depth at this size.
	layers int
}{
	{regexp.MustCompile(`(^|[^0-9.])70b`), "70B", 80},
	{regexp.MustCompile(`(^|[^0-9.])13b`), "13B", 40},
	{regexp.MustCompile(`(^|[^0-9.])8b`), "8B", 32},
	{regexp.MustCompile(`(^|[^0-9.])7b`), "7B", 32},
	{regexp.MustCompile(`(^|[^0-9.])3b`), "3B", 26},
}

// quantizations are checked in order; specific k-quants come before the
// bare bit widths they contain.
var quantizations = []struct{ needle, label string }{
	{"q4_k_m", "Q4_K_M"},
	{"q5_k_m", "Q5_K_M"},
	{"q6_k", "Q6_K"},
	{"q8", "Q8_0"},
	{"q4", "Q4_0"},
	{"q5", "Q5_0"},
}

type archInfo struct {
	needle, label  string
	vocab, context int
}

var architectures = []archInfo{
	{"llama", "Llama", 32000, 8192},
	{"qwen", "Qwen", 151936, 32768},
	{"mistral", "Mistral", 32000, 32768},
	{"phi", "Phi", 51200, 4096},
	{"gemma", "Gemma", 256000, 8192},
}

const (
	defaultLayers  = 32
	defaultVocab   = 32000
	defaultContext = 4096
)

// Inspect describes a model file from its name and size. The GGUF header
// is not read, so every field except the size is a guess. A missing file
// yields an error wrapping fs.ErrNotExist.
func Inspect(path string) (types.ModelMetadata, error) {
	size, err := fsutil.FileSize(path)
	if err != nil {
		return types.ModelMetadata{}, err
	}
	name := filepath.Base(path)
	md := describeName(name)
	md.FileSizeBytes = size
	md.FileSizeGB = fmt.Sprintf("%.2f", float64(size)/(1<<30))
	return md, nil
}

// describeName applies the file-name heuristics.
func describeName(name string) types.ModelMetadata {
	lower := strings.ToLower(name)
	md := types.ModelMetadata{
		FileName:               name,
		Parameters:             unknown,
		Quantization:           unknown,
		Architecture:           unknown,
		EstimatedLayers:        defaultLayers,
		EstimatedVocabSize:     defaultVocab,
		EstimatedContextLength: defaultContext,
	}
	for _, p := range paramSizes {
		if p.re.MatchString(lower) {
			md.Parameters, md.EstimatedLayers = p.label, p.layers
			break
		}
	}
	for _, q := range quantizations {
		if strings.Contains(lower, q.needle) {
			md.Quantization = q.label
			break
		}
	}
	for _, a := range architectures {
		if strings.Contains(lower, a.needle) {
			md.Architecture = a.label
			md.EstimatedVocabSize = a.vocab
			md.EstimatedContextLength = a.context
			break
		}
	}
	md.ModelType = md.Architecture + " " + md.Parameters
	return md
}

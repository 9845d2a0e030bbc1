package manager

import "strings"

// controlMarkers are chat-template delimiters that some models emit as text.
var controlMarkers = []string{
	"<|im_start|>",
	"<|im_end|>",
	"<|endoftext|>",
	"<|system|>",
	"<|user|>",
	"<|assistant|>",
}

var markerReplacer = func() *strings.Replacer {
	args := make([]string, 0, 2*len(controlMarkers))
	for _, mk := range controlMarkers {
		args = append(args, mk, "")
	}
	return strings.NewReplacer(args...)
}()

// sanitize strips control markers and surrounding whitespace. Removal is
// repeated until stable so that markers split around another marker do not
// survive ("<|im_<|user|>end|>").
func sanitize(s string) string {
	for {
		next := markerReplacer.Replace(s)
		if next == s {
			break
		}
		s = next
	}
	return strings.TrimSpace(s)
}

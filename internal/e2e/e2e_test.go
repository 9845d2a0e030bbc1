package e2e

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"strings"
	"testing"

	"ggufd/internal/llamacpp"
	"ggufd/pkg/types"
)

func TestE2E_Lifecycle(t *testing.T) {
	dir, paths := createTempModelsDir(t, "qwen2-7b-instruct-q4_k_m.gguf")
	srv, _ := newServerForDir(t, dir, llamacpp.NewFake(" Hi there<|im_end|>"))

	if code := get(t, srv, "/readyz", nil); code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before load = %d", code)
	}
	resp, _ := post(t, srv, "/generate", types.GenerateRequest{Prompt: "Hello"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("generate before load = %d", resp.StatusCode)
	}

	resp, body := post(t, srv, "/load", types.LoadRequest{ModelPath: paths[0], ContextSize: 4096})
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "model loaded") {
		t.Fatalf("load = %d %s", resp.StatusCode, body)
	}
	var st types.StatusResponse
	get(t, srv, "/status", &st)
	if !st.Loaded || st.ModelPath == nil || *st.ModelPath != paths[0] || st.ContextSize != 4096 || !st.BackendInitialized {
		t.Fatalf("status after load: %+v", st)
	}

	resp, body = post(t, srv, "/generate", types.GenerateRequest{Prompt: "Hello", MaxTokens: u32(5)})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate = %d %s", resp.StatusCode, body)
	}
	var gen types.GenerateResponse
	if err := json.Unmarshal(body, &gen); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gen.Text != "Hi t" || gen.Usage.CompletionTokens > 5 || gen.Usage.PromptTokens != 6 {
		t.Fatalf("unexpected generation: %+v", gen)
	}

	resp, body = post(t, srv, "/generate", types.GenerateRequest{Prompt: "Hello", MaxTokens: u32(0)})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate max_tokens=0 = %d %s", resp.StatusCode, body)
	}
	gen = types.GenerateResponse{}
	if err := json.Unmarshal(body, &gen); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gen.Text != "" || gen.Usage.CompletionTokens != 0 || gen.Usage.PromptTokens != 6 {
		t.Fatalf("max_tokens=0 should generate nothing: %+v", gen)
	}

	var mem types.MemoryReport
	get(t, srv, "/memory", &mem)
	if !mem.Available || mem.TotalVRAMGB != 12 {
		t.Fatalf("memory: %+v", mem)
	}

	resp, body = post(t, srv, "/unload", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "model unloaded") {
		t.Fatalf("unload = %d %s", resp.StatusCode, body)
	}
	st = types.StatusResponse{}
	get(t, srv, "/status", &st)
	if st.Loaded || st.ModelPath != nil || !st.BackendInitialized {
		t.Fatalf("status after model unload: %+v", st)
	}
	post(t, srv, "/unload?full=1", nil)
	st = types.StatusResponse{}
	get(t, srv, "/status", &st)
	if st.BackendInitialized {
		t.Fatalf("backend still initialized after full unload")
	}
}

func TestE2E_LoadMissingFile404(t *testing.T) {
	dir, _ := createTempModelsDir(t)
	srv, _ := newServerForDir(t, dir, llamacpp.NewFake("x"))
	resp, _ := post(t, srv, "/load", types.LoadRequest{ModelPath: dir + "/nope.gguf"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if code := get(t, srv, "/metadata?path="+dir+"/nope.gguf", nil); code != http.StatusNotFound {
		t.Fatalf("metadata status = %d", code)
	}
}

func TestE2E_PromptTooLong413(t *testing.T) {
	dir, paths := createTempModelsDir(t, "tiny-q4_0.gguf")
	srv, _ := newServerForDir(t, dir, llamacpp.NewFake("x"))
	post(t, srv, "/load", types.LoadRequest{ModelPath: paths[0], ContextSize: 8})
	resp, _ := post(t, srv, "/generate", types.GenerateRequest{Prompt: strings.Repeat("a", 20)})
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if code := get(t, srv, "/readyz", nil); code != http.StatusOK {
		t.Fatalf("model should stay loaded, readyz = %d", code)
	}
}

func TestE2E_StreamReplay(t *testing.T) {
	dir, paths := createTempModelsDir(t, "tiny-q4_0.gguf")
	srv, _ := newServerForDir(t, dir, llamacpp.NewFake("one two three"))
	post(t, srv, "/load", types.LoadRequest{ModelPath: paths[0]})

	resp, body := post(t, srv, "/generate", types.GenerateRequest{Prompt: "count", MaxTokens: u32(64), Stream: true})
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/x-ndjson" {
		t.Fatalf("stream = %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	var events []types.StreamEvent
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		var ev types.StreamEvent
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		events = append(events, ev)
	}
	if len(events) != 6 {
		t.Fatalf("expected start + 3 words + done + complete, got %d: %+v", len(events), events)
	}
	if events[0].Type != types.StreamStart || events[1].Token != "one " || !events[4].Done || events[5].Text != "one two three" {
		t.Fatalf("unexpected sequence: %+v", events)
	}
}

func TestE2E_Vision(t *testing.T) {
	dir, paths := createTempModelsDir(t, "llava-7b-q4_k_m.gguf")
	srv, _ := newServerForDir(t, dir, llamacpp.NewFake("a cat"))
	post(t, srv, "/load", types.LoadRequest{ModelPath: paths[0]})

	resp, _ := post(t, srv, "/generate/vision", types.VisionRequest{Prompt: "what?", Images: []string{"!!not-base64!!"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed image status = %d", resp.StatusCode)
	}
	var st types.StatusResponse
	get(t, srv, "/status", &st)
	if !st.Loaded {
		t.Fatalf("status changed by malformed vision request: %+v", st)
	}

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png: %v", err)
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	resp, body := post(t, srv, "/generate/vision", types.VisionRequest{Prompt: "what?", Images: []string{dataURL}, MaxTokens: u32(16)})
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "a cat") {
		t.Fatalf("vision = %d %s", resp.StatusCode, body)
	}
}

func TestE2E_ModelsAndMetadata(t *testing.T) {
	dir, paths := createTempModelsDir(t, "llama-3-8b-q8.gguf", "mmproj-f16.gguf", "notes.txt")
	srv, _ := newServerForDir(t, dir, llamacpp.NewFake("x"))
	var list struct {
		Models []types.Model `json:"models"`
	}
	get(t, srv, "/models", &list)
	if len(list.Models) != 1 || list.Models[0].Quant != "Q8_0" {
		t.Fatalf("models: %+v", list.Models)
	}
	var md types.ModelMetadata
	if code := get(t, srv, "/metadata?path="+paths[0], &md); code != http.StatusOK {
		t.Fatalf("metadata status = %d", code)
	}
	if md.Parameters != "8B" || md.Architecture != "Llama" || md.FileSizeBytes != 2048 {
		t.Fatalf("metadata: %+v", md)
	}
	var be types.BackendInfo
	get(t, srv, "/backend", &be)
	if be.Backend == "" {
		t.Fatalf("backend: %+v", be)
	}
}

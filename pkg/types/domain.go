package types

// Model represents a GGUF file discovered in the models directory.
type Model struct {
	// Stable identifier for the model (the file name).
	// example: qwen2.5-7b-instruct-q4_k_m.gguf
	ID string `json:"id" example:"qwen2.5-7b-instruct-q4_k_m.gguf"`
	// Human-friendly name.
	// example: Qwen 7B
	Name string `json:"name" example:"Qwen 7B"`
	// Absolute path to the model file on disk.
	// example: /home/user/models/qwen2.5-7b-instruct-q4_k_m.gguf
	Path string `json:"path" example:"/home/user/models/qwen2.5-7b-instruct-q4_k_m.gguf"`
	// Quantization level guessed from the file name.
	// example: Q4_K_M
	Quant string `json:"quant" example:"Q4_K_M"`
	// Architecture family guessed from the file name.
	// example: Qwen
	Family    string `json:"family,omitempty" example:"Qwen"`
	SizeBytes int64  `json:"size_bytes"`
}

// ModelMetadata is a best-effort description derived from the file name
// and size; the model header is not parsed.
type ModelMetadata struct {
	FileName               string `json:"file_name"`
	FileSizeBytes          int64  `json:"file_size_bytes"`
	FileSizeGB             string `json:"file_size_gb"`
	Parameters             string `json:"parameters"`
	Quantization           string `json:"quantization"`
	Architecture           string `json:"architecture"`
	EstimatedLayers        int    `json:"estimated_layers"`
	EstimatedVocabSize     int    `json:"estimated_vocab_size"`
	EstimatedContextLength int    `json:"estimated_context_length"`
	ModelType              string `json:"model_type"`
}

// MemoryReport is an advisory VRAM estimate for the resident model.
type MemoryReport struct {
	Available    bool    `json:"available"`
	TotalVRAMGB  float64 `json:"total_vram_gb"`
	UsedVRAMGB   float64 `json:"used_vram_gb"`
	FreeVRAMGB   float64 `json:"free_vram_gb"`
	UsagePercent float64 `json:"usage_percent"`
	ModelSizeGB  float64 `json:"model_size_gb"`
	KVCacheGB    float64 `json:"kv_cache_size_gb"`
}

// BackendInfo describes the compiled execution backend.
type BackendInfo struct {
	// example: CUDA
	Backend              string `json:"backend" example:"CUDA"`
	CUDAAvailable        bool   `json:"cuda_available"`
	VulkanAvailable      bool   `json:"vulkan_available"`
	MetalAvailable       bool   `json:"metal_available"`
	GPUOffload           bool   `json:"gpu_offload"`
	RecommendedGPULayers int    `json:"recommended_gpu_layers"`
	Message              string `json:"message"`
}

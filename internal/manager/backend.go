package manager

import (
	"errors"
	"io/fs"

	"ggufd/internal/llamacpp"
	"ggufd/internal/registry"
	"ggufd/pkg/types"
)

// recommendedGPULayers is suggested to clients when offload is available.
const recommendedGPULayers = 28

// Backend describes the runtime this binary was built with. It does not
// touch model state.
func (m *Manager) Backend() types.BackendInfo {
	kind := m.rt.Kind()
	gpu := m.rt.GPUOffload()
	info := types.BackendInfo{
		Backend:         string(kind),
		CUDAAvailable:   kind == llamacpp.KindCUDA,
		VulkanAvailable: kind == llamacpp.KindVulkan,
		MetalAvailable:  kind == llamacpp.KindMetal,
		GPUOffload:      gpu,
	}
	if gpu {
		info.RecommendedGPULayers = recommendedGPULayers
		info.Message = string(kind) + " acceleration available, offload layers with gpu_layers"
	} else {
		info.Message = "running on CPU, gpu_layers is ignored"
	}
	return info
}

// Metadata describes the model file at path from its name and size.
func (m *Manager) Metadata(path string) (types.ModelMetadata, error) {
	md, err := registry.Inspect(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.ModelMetadata{}, newError(KindNotFound, "metadata", "model file not found: "+path, err)
		}
		return types.ModelMetadata{}, newError(KindInternal, "metadata", "inspect "+path, err)
	}
	return md, nil
}

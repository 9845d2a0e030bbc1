package manager

import "ggufd/pkg/types"

// MemoryProfile describes the hardware and architecture assumed by the
// VRAM estimate. Zero fields take the defaults below.
type MemoryProfile struct {
	Layers          int
	HiddenDim       int
	BytesPerElement int
	ModelSizeGB     float64
	TotalVRAMGB     float64
}

// Defaults for a 7B-class model with an f16 KV cache on a 12 GB card.
var defaultMemoryProfile = MemoryProfile{
	Layers:          28,
	HiddenDim:       4096,
	BytesPerElement: 2,
	ModelSizeGB:     4.2,
	TotalVRAMGB:     12.0,
}

func (p MemoryProfile) withDefaults() MemoryProfile {
	d := defaultMemoryProfile
	if p.Layers > 0 {
		d.Layers = p.Layers
	}
	if p.HiddenDim > 0 {
		d.HiddenDim = p.HiddenDim
	}
	if p.BytesPerElement > 0 {
		d.BytesPerElement = p.BytesPerElement
	}
	if p.ModelSizeGB > 0 {
		d.ModelSizeGB = p.ModelSizeGB
	}
	if p.TotalVRAMGB > 0 {
		d.TotalVRAMGB = p.TotalVRAMGB
	}
	return d
}

// EstimateMemory computes an advisory VRAM report from a state snapshot.
// Offloaded layers beyond the profile's layer count do not add KV cache.
func EstimateMemory(s Snapshot, p MemoryProfile) types.MemoryReport {
	if !s.Loaded {
		return types.MemoryReport{}
	}
	p = p.withDefaults()
	active := min(int(s.GPULayers), p.Layers)
	// keys and values
	kv := 2 * float64(active) * float64(s.ContextSize) * float64(p.HiddenDim) * float64(p.BytesPerElement) / 1e9
	used := p.ModelSizeGB + kv
	free := max(p.TotalVRAMGB-used, 0)
	usage := 0.0
	if p.TotalVRAMGB > 0 {
		usage = min(max(used/p.TotalVRAMGB*100, 0), 100)
	}
	return types.MemoryReport{
		Available:    true,
		TotalVRAMGB:  p.TotalVRAMGB,
		UsedVRAMGB:   used,
		FreeVRAMGB:   free,
		UsagePercent: usage,
		ModelSizeGB:  p.ModelSizeGB,
		KVCacheGB:    kv,
	}
}

// MemoryReport estimates VRAM use of the resident model.
func (m *Manager) MemoryReport() types.MemoryReport {
	return EstimateMemory(m.Snapshot(), m.cfg.Memory)
}

package layout

import "github.com/randomizedcoder/go-mist-scatter/internal/scatter"

// LayerInfo describes a layer without its particles.
type LayerInfo struct {
	Name          string         `json:"name"`
	Seed          int64          `json:"seed"`
	Count         uint           `json:"count"`
	EffectiveSeed uint32         `json:"effective_seed"`
	Ranges        scatter.Ranges `json:"ranges"`
}

// LayerResponse is the payload of GET /v1/layers/{name}.
type LayerResponse struct {
	LayerInfo
	Particles []scatter.Particle `json:"particles"`
}

// ListResponse is the payload of GET /v1/layers.
type ListResponse struct {
	Layers []LayerInfo `json:"layers"`
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Reseed is a live-preview request sent over the websocket.
type Reseed struct {
	Seed  *int64 `json:"seed,omitempty"`
	Count *uint  `json:"count,omitempty"`
}

// Info returns the particle-free description of l.
func Info(l scatter.Layer) LayerInfo {
	return LayerInfo{
		Name:          l.Name,
		Seed:          l.Seed,
		Count:         l.Count,
		EffectiveSeed: l.Effective(),
		Ranges:        l.Ranges,
	}
}

// NewLayerResponse pairs a layer with its particles.
func NewLayerResponse(l scatter.Layer, particles []scatter.Particle) LayerResponse {
	return LayerResponse{LayerInfo: Info(l), Particles: particles}
}

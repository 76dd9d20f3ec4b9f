// Package backend maps validated generation requests onto the wire
// payloads of the individual model families. The submission endpoint is
// shared; what differs per model is which knobs it accepts and what a
// run costs.
package backend

import (
	"github.com/vietddude/genflow/internal/core/apierr"
	"github.com/vietddude/genflow/internal/core/domain"
)

// Submission is the JSON body of POST /generate.
type Submission struct {
	Model           domain.Model   `json:"model"`
	Prompt          string         `json:"prompt"`
	NegativePrompt  string         `json:"negative_prompt,omitempty"`
	Style           string         `json:"style,omitempty"`
	DurationSeconds int            `json:"duration_seconds,omitempty"`
	Resolution      string         `json:"resolution"`
	FrameRate       int            `json:"fps,omitempty"`
	Quality         domain.Quality `json:"quality"`
}

// Adapter translates a request for one model family.
type Adapter interface {
	// Model returns the wire identifier this adapter serves.
	Model() domain.Model

	// Payload builds the model-specific submission body. The request has
	// already passed validation.
	Payload(req domain.GenerationRequest) Submission

	// EstimateCost predicts the spend of one run in billing units.
	EstimateCost(req domain.GenerationRequest) float64
}

// Registry resolves adapters by model identifier.
type Registry struct {
	adapters map[domain.Model]Adapter
}

// NewRegistry creates a registry with the standard video and image
// adapters installed.
func NewRegistry() *Registry {
	r := &Registry{adapters: make(map[domain.Model]Adapter)}
	r.Add(VideoAdapter{})
	r.Add(ImageAdapter{})
	return r
}

// Add installs an adapter, replacing any previous one for the same model.
func (r *Registry) Add(a Adapter) {
	r.adapters[a.Model()] = a
}

// For resolves the adapter for model. An unknown model is a validation
// failure at the client boundary, not a server round-trip.
func (r *Registry) For(model domain.Model) (Adapter, error) {
	a, ok := r.adapters[model]
	if !ok {
		return nil, apierr.Invalid("model", "unknown model "+string(model))
	}
	return a, nil
}

// Payload builds the submission body for req via its model's adapter.
func (r *Registry) Payload(req domain.GenerationRequest) (Submission, error) {
	a, err := r.For(req.Model)
	if err != nil {
		return Submission{}, err
	}
	return a.Payload(req), nil
}

// EstimateCost predicts the spend of req. Unknown models cost zero; the
// validator rejects them before any budget decision matters.
func (r *Registry) EstimateCost(req domain.GenerationRequest) float64 {
	a, ok := r.adapters[req.Model]
	if !ok {
		return 0
	}
	return a.EstimateCost(req)
}

// Multipliers shared by the cost models.
func resolutionFactor(resolution string) float64 {
	switch resolution {
	case "1920x1080":
		return 1.0
	case "1280x720":
		return 0.6
	case "854x480":
		return 0.35
	default:
		return 1.0
	}
}

func qualityFactor(q domain.Quality) float64 {
	switch q {
	case domain.QualityDraft:
		return 0.5
	case domain.QualityStandard:
		return 1.0
	case domain.QualityHigh:
		return 1.5
	default:
		return 1.0
	}
}

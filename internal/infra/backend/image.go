package backend

import "github.com/vietddude/genflow/internal/core/domain"

// Billing rate per 1080p standard-quality image.
const imageCostPerRun = 0.04

// ImageAdapter submits to the still-image generation model. Temporal
// fields are stripped from the payload; the endpoint ignores them but
// sending them invites confusion in the server-side request log.
type ImageAdapter struct{}

func (ImageAdapter) Model() domain.Model { return domain.ModelImage }

func (ImageAdapter) Payload(req domain.GenerationRequest) Submission {
	return Submission{
		Model:          domain.ModelImage,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Style:          req.Style,
		Resolution:     req.Resolution,
		Quality:        req.Quality,
	}
}

func (ImageAdapter) EstimateCost(req domain.GenerationRequest) float64 {
	return imageCostPerRun * resolutionFactor(req.Resolution) * qualityFactor(req.Quality)
}

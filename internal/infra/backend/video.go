package backend

import "github.com/vietddude/genflow/internal/core/domain"

// Billing rate per second of 1080p standard-quality video.
const videoCostPerSecond = 0.05

// VideoAdapter submits to the video generation model. Video runs carry
// the full temporal parameter set.
type VideoAdapter struct{}

func (VideoAdapter) Model() domain.Model { return domain.ModelVideo }

func (VideoAdapter) Payload(req domain.GenerationRequest) Submission {
	return Submission{
		Model:           domain.ModelVideo,
		Prompt:          req.Prompt,
		NegativePrompt:  req.NegativePrompt,
		Style:           req.Style,
		DurationSeconds: req.DurationSeconds,
		Resolution:      req.Resolution,
		FrameRate:       req.FrameRate,
		Quality:         req.Quality,
	}
}

func (VideoAdapter) EstimateCost(req domain.GenerationRequest) float64 {
	seconds := float64(req.DurationSeconds)
	if seconds <= 0 {
		seconds = 1
	}

	cost := videoCostPerSecond * seconds * resolutionFactor(req.Resolution) * qualityFactor(req.Quality)

	// 60fps renders roughly double the frames of the 24/30 tiers.
	if req.FrameRate >= 60 {
		cost *= 1.8
	}
	return cost
}

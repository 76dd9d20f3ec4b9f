package domain

import "time"

// Priority orders waiting submissions in the dispatch queue.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Rank returns the numeric ordering key; lower ranks dispatch first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityNormal:
		return 1
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// Valid reports whether p is one of the known priority tiers.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

type Quality string

const (
	QualityDraft    Quality = "draft"
	QualityStandard Quality = "standard"
	QualityHigh     Quality = "high"
)

// Model identifies the generation model family on the wire.
type Model string

const (
	ModelVideo Model = "veo-video"
	ModelImage Model = "imagen-image"
)

// GenerationRequest is the immutable user-facing request value.
// A request that fails validation never reaches the network.
type GenerationRequest struct {
	Prompt          string  `json:"prompt"`
	NegativePrompt  string  `json:"negative_prompt,omitempty"`
	Style           string  `json:"style,omitempty"`
	DurationSeconds int     `json:"duration_seconds,omitempty"`
	Resolution      string  `json:"resolution"`
	FrameRate       int     `json:"fps,omitempty"`
	Quality         Quality `json:"quality"`
	Model           Model   `json:"model"`
}

// RequestOptions carries per-call configuration. Zero values are filled
// from the client defaults; external cancellation is the caller's context.
type RequestOptions struct {
	Timeout           time.Duration
	MaxRetries        int
	InitialDelay      time.Duration
	BackoffMultiplier float64
	Priority          Priority
}

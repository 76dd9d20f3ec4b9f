// Package validate checks generation requests before they are queued.
// A request that fails validation never reaches the network.
package validate

import (
	"fmt"
	"strings"

	"github.com/vietddude/genflow/internal/core/apierr"
	"github.com/vietddude/genflow/internal/core/domain"
)

// Enumerated fields are fixed by the backend API; only the bounds below
// are tunable.
var (
	allowedResolutions = []string{"854x480", "1280x720", "1920x1080"}
	allowedFrameRates  = []int{24, 30, 60}
)

const (
	minDurationSeconds = 1
	maxDurationSeconds = 300
	maxStyleLength     = 100

	defaultPromptLength = 1000
	defaultDuration     = 30
	defaultResolution   = "1920x1080"
	defaultFrameRate    = 30
)

// Limits bounds the free-form parts of a request.
type Limits struct {
	MaxPromptLength int
}

// Validator applies the full rule set and reports every violation at
// once rather than stopping at the first.
type Validator struct {
	limits Limits
}

func New(limits Limits) *Validator {
	if limits.MaxPromptLength <= 0 {
		limits.MaxPromptLength = defaultPromptLength
	}
	return &Validator{limits: limits}
}

// Normalize fills unset fields with the backend defaults. It does not
// validate; callers run Validate on the result.
func (v *Validator) Normalize(req domain.GenerationRequest) domain.GenerationRequest {
	if req.Model == "" {
		req.Model = domain.ModelVideo
	}
	if req.Resolution == "" {
		req.Resolution = defaultResolution
	}
	if req.Quality == "" {
		req.Quality = domain.QualityHigh
	}
	if req.Model == domain.ModelVideo {
		if req.DurationSeconds == 0 {
			req.DurationSeconds = defaultDuration
		}
		if req.FrameRate == 0 {
			req.FrameRate = defaultFrameRate
		}
	}
	return req
}

// Validate returns nil when req satisfies every rule, or a
// validation_error carrying one entry per violated field. It is
// synchronous and side-effect free.
func (v *Validator) Validate(req domain.GenerationRequest) error {
	var fields []apierr.FieldViolation

	add := func(field, message string) {
		fields = append(fields, apierr.FieldViolation{Field: field, Message: message})
	}

	if strings.TrimSpace(req.Prompt) == "" {
		add("prompt", "must not be empty")
	} else if len(req.Prompt) > v.limits.MaxPromptLength {
		add("prompt", fmt.Sprintf("must be at most %d characters, got %d", v.limits.MaxPromptLength, len(req.Prompt)))
	}

	if len(req.NegativePrompt) > v.limits.MaxPromptLength {
		add("negative_prompt", fmt.Sprintf("must be at most %d characters, got %d", v.limits.MaxPromptLength, len(req.NegativePrompt)))
	}

	if len(req.Style) > maxStyleLength {
		add("style", fmt.Sprintf("must be at most %d characters, got %d", maxStyleLength, len(req.Style)))
	}

	// Image requests carry no temporal parameters; zero means absent.
	temporal := req.Model != domain.ModelImage || req.DurationSeconds != 0 || req.FrameRate != 0
	if temporal {
		if req.DurationSeconds < minDurationSeconds || req.DurationSeconds > maxDurationSeconds {
			add("duration_seconds", fmt.Sprintf("must be between %d and %d seconds, got %d",
				minDurationSeconds, maxDurationSeconds, req.DurationSeconds))
		}
		if !containsInt(allowedFrameRates, req.FrameRate) {
			add("fps", fmt.Sprintf("must be one of %s, got %d", joinInts(allowedFrameRates), req.FrameRate))
		}
	}

	if !containsString(allowedResolutions, req.Resolution) {
		add("resolution", fmt.Sprintf("must be one of %s, got %q", strings.Join(allowedResolutions, ", "), req.Resolution))
	}

	switch req.Quality {
	case domain.QualityDraft, domain.QualityStandard, domain.QualityHigh:
	default:
		add("quality", fmt.Sprintf("must be one of %s, %s, %s, got %q",
			domain.QualityDraft, domain.QualityStandard, domain.QualityHigh, req.Quality))
	}

	switch req.Model {
	case domain.ModelVideo, domain.ModelImage:
	default:
		add("model", fmt.Sprintf("unknown model %q", req.Model))
	}

	if len(fields) > 0 {
		return apierr.Validation(fields)
	}
	return nil
}

// Resolutions lists the accepted resolution values.
func Resolutions() []string {
	out := make([]string, len(allowedResolutions))
	copy(out, allowedResolutions)
	return out
}

// FrameRates lists the accepted frame rates.
func FrameRates() []int {
	out := make([]int, len(allowedFrameRates))
	copy(out, allowedFrameRates)
	return out
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsInt(set []int, v int) bool {
	for _, n := range set {
		if n == v {
			return true
		}
	}
	return false
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ", ")
}

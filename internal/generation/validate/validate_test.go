package validate

import (
	"strings"
	"testing"

	"github.com/vietddude/genflow/internal/core/apierr"
	"github.com/vietddude/genflow/internal/core/domain"
)

func validRequest() domain.GenerationRequest {
	return domain.GenerationRequest{
		Prompt:          "a red fox crossing a snowy field at dawn",
		DurationSeconds: 30,
		Resolution:      "1920x1080",
		FrameRate:       30,
		Quality:         domain.QualityStandard,
		Model:           domain.ModelVideo,
	}
}

func violations(t *testing.T, err error) []apierr.FieldViolation {
	t.Helper()
	apiErr, ok := apierr.As(err)
	if !ok {
		t.Fatalf("expected *apierr.Error, got %T", err)
	}
	if apiErr.Type != apierr.TypeValidation {
		t.Fatalf("expected validation_error, got %s", apiErr.Type)
	}
	return apiErr.Fields
}

func fieldNames(fields []apierr.FieldViolation) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Field
	}
	return names
}

func TestValidate_AcceptsValidRequest(t *testing.T) {
	v := New(Limits{})
	if err := v.Validate(validRequest()); err != nil {
		t.Fatalf("expected valid request to pass, got %v", err)
	}
}

func TestValidate_SingleFieldViolations(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.GenerationRequest)
		field   string
		message string
	}{
		{
			name:   "empty prompt",
			mutate: func(r *domain.GenerationRequest) { r.Prompt = "   " },
			field:  "prompt",
		},
		{
			name:    "prompt too long",
			mutate:  func(r *domain.GenerationRequest) { r.Prompt = strings.Repeat("x", 1001) },
			field:   "prompt",
			message: "at most 1000",
		},
		{
			name:    "duration below range",
			mutate:  func(r *domain.GenerationRequest) { r.DurationSeconds = 0 },
			field:   "duration_seconds",
			message: "between 1 and 300",
		},
		{
			name:   "duration above range",
			mutate: func(r *domain.GenerationRequest) { r.DurationSeconds = 301 },
			field:  "duration_seconds",
		},
		{
			name:   "unknown resolution",
			mutate: func(r *domain.GenerationRequest) { r.Resolution = "640x480" },
			field:  "resolution",
		},
		{
			name:   "unknown frame rate",
			mutate: func(r *domain.GenerationRequest) { r.FrameRate = 25 },
			field:  "fps",
		},
		{
			name:   "unknown quality",
			mutate: func(r *domain.GenerationRequest) { r.Quality = "ultra" },
			field:  "quality",
		},
		{
			name:   "style too long",
			mutate: func(r *domain.GenerationRequest) { r.Style = strings.Repeat("y", 101) },
			field:  "style",
		},
		{
			name:   "negative prompt too long",
			mutate: func(r *domain.GenerationRequest) { r.NegativePrompt = strings.Repeat("z", 1001) },
			field:  "negative_prompt",
		},
		{
			name:   "unknown model",
			mutate: func(r *domain.GenerationRequest) { r.Model = "dalle" },
			field:  "model",
		},
	}

	v := New(Limits{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			fields := violations(t, v.Validate(req))
			if len(fields) != 1 {
				t.Fatalf("expected exactly 1 violation, got %v", fields)
			}
			if fields[0].Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, fields[0].Field)
			}
			if tt.message != "" && !strings.Contains(fields[0].Message, tt.message) {
				t.Errorf("expected message containing %q, got %q", tt.message, fields[0].Message)
			}
		})
	}
}

func TestValidate_ReportsAllViolationsAtOnce(t *testing.T) {
	req := validRequest()
	req.Prompt = strings.Repeat("x", 2000)
	req.DurationSeconds = 600
	req.Resolution = "8000x6000"
	req.FrameRate = 144

	v := New(Limits{})
	fields := violations(t, v.Validate(req))

	want := []string{"prompt", "duration_seconds", "fps", "resolution"}
	got := fieldNames(fields)
	if len(got) != len(want) {
		t.Fatalf("expected %d violations %v, got %v", len(want), want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("violation %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestValidate_ConfiguredPromptLimit(t *testing.T) {
	v := New(Limits{MaxPromptLength: 10})

	req := validRequest()
	req.Prompt = "only eleven"
	fields := violations(t, v.Validate(req))
	if len(fields) != 1 || fields[0].Field != "prompt" {
		t.Fatalf("expected prompt violation at limit 10, got %v", fields)
	}

	req.Prompt = "ten chars."
	if err := v.Validate(req); err != nil {
		t.Errorf("prompt at the limit should pass, got %v", err)
	}
}

func TestValidate_ImageSkipsTemporalFields(t *testing.T) {
	req := domain.GenerationRequest{
		Prompt:     "a watercolor hummingbird",
		Resolution: "1280x720",
		Quality:    domain.QualityHigh,
		Model:      domain.ModelImage,
	}

	v := New(Limits{})
	if err := v.Validate(req); err != nil {
		t.Fatalf("image request without duration/fps should pass, got %v", err)
	}

	// Explicit temporal values on an image request are still checked.
	req.DurationSeconds = 999
	fields := violations(t, v.Validate(req))
	if len(fields) == 0 || fields[0].Field != "duration_seconds" {
		t.Errorf("expected duration violation, got %v", fields)
	}
}

func TestNormalize_FillsDefaults(t *testing.T) {
	v := New(Limits{})
	req := v.Normalize(domain.GenerationRequest{Prompt: "dunes at noon"})

	if req.Model != domain.ModelVideo {
		t.Errorf("expected default model %s, got %s", domain.ModelVideo, req.Model)
	}
	if req.Resolution != "1920x1080" {
		t.Errorf("expected default resolution, got %s", req.Resolution)
	}
	if req.DurationSeconds != 30 || req.FrameRate != 30 {
		t.Errorf("expected default duration/fps 30/30, got %d/%d", req.DurationSeconds, req.FrameRate)
	}
	if req.Quality != domain.QualityHigh {
		t.Errorf("expected default quality high, got %s", req.Quality)
	}

	if err := v.Validate(req); err != nil {
		t.Errorf("normalized request should validate, got %v", err)
	}
}

func TestNormalize_KeepsExplicitValues(t *testing.T) {
	v := New(Limits{})
	in := validRequest()
	in.Resolution = "854x480"
	in.FrameRate = 24

	out := v.Normalize(in)
	if out != in {
		t.Errorf("expected request unchanged, got %+v", out)
	}
}

package apierr

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestFromResponse_ValidationDetailList(t *testing.T) {
	body := []byte(`{"detail":[
		{"loc":["body","duration_seconds"],"msg":"ensure this value is less than or equal to 300","type":"value_error"},
		{"loc":["body","prompt"],"msg":"field required","type":"value_error.missing"}
	]}`)

	ce := FromResponse(http.StatusUnprocessableEntity, http.Header{}, body)

	if ce.Type != TypeValidation {
		t.Fatalf("expected %s, got %s", TypeValidation, ce.Type)
	}
	if len(ce.Fields) != 2 {
		t.Fatalf("expected 2 field violations, got %d", len(ce.Fields))
	}
	if ce.Fields[0].Field != "duration_seconds" {
		t.Errorf("expected field duration_seconds, got %s", ce.Fields[0].Field)
	}
	if ce.Fields[1].Field != "prompt" {
		t.Errorf("expected field prompt, got %s", ce.Fields[1].Field)
	}
}

func TestFromResponse_ValidationStringDetail(t *testing.T) {
	ce := FromResponse(422, http.Header{}, []byte(`{"detail":"prompt too long"}`))

	if ce.Type != TypeValidation {
		t.Fatalf("expected %s, got %s", TypeValidation, ce.Type)
	}
	if len(ce.Fields) != 1 || ce.Fields[0].Message != "prompt too long" {
		t.Errorf("unexpected fields: %+v", ce.Fields)
	}
}

func TestFromResponse_RateLimitHeaders(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "5")
	header.Set("X-RateLimit-Limit", "100")
	header.Set("X-RateLimit-Remaining", "0")
	header.Set("X-RateLimit-Reset", "1700000000")

	ce := FromResponse(429, header, []byte(`{"detail":"daily quota exhausted"}`))

	if ce.Type != TypeRateLimit {
		t.Fatalf("expected %s, got %s", TypeRateLimit, ce.Type)
	}
	if ce.RetryAfter == nil || *ce.RetryAfter != 5*time.Second {
		t.Errorf("expected retryAfter 5s, got %v", ce.RetryAfter)
	}
	if ce.Limit == nil {
		t.Fatal("expected limit info")
	}
	if ce.Limit.Limit == nil || *ce.Limit.Limit != 100 {
		t.Errorf("expected limit 100, got %v", ce.Limit.Limit)
	}
	if ce.Limit.Remaining == nil || *ce.Limit.Remaining != 0 {
		t.Errorf("expected remaining 0, got %v", ce.Limit.Remaining)
	}
	if ce.Limit.ResetTime == nil || ce.Limit.ResetTime.Unix() != 1700000000 {
		t.Errorf("expected reset 1700000000, got %v", ce.Limit.ResetTime)
	}
	if ce.Message != "daily quota exhausted" {
		t.Errorf("unexpected message: %s", ce.Message)
	}
}

func TestFromResponse_RateLimitNoHeaders(t *testing.T) {
	ce := FromResponse(429, http.Header{}, nil)

	if ce.Type != TypeRateLimit {
		t.Fatalf("expected %s, got %s", TypeRateLimit, ce.Type)
	}
	if ce.RetryAfter != nil {
		t.Errorf("retryAfter must stay absent, got %v", *ce.RetryAfter)
	}
	if ce.Limit != nil {
		t.Errorf("limit info must stay absent, got %+v", ce.Limit)
	}
}

func TestFromResponse_ServerErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       []byte
		expectCode string
	}{
		{"bare 500", 500, nil, "UNKNOWN"},
		{"coded 500", 500, []byte(`{"error_code":"MODEL_OVERLOADED","suggested_action":"retry in a minute","support_reference":"REF-42"}`), "MODEL_OVERLOADED"},
		{"bad gateway", 502, nil, "HTTP_502"},
		{"unavailable", 503, nil, "HTTP_503"},
		{"gateway timeout", 504, nil, "HTTP_504"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := FromResponse(tt.status, http.Header{}, tt.body)
			if ce.Type != TypeServer {
				t.Fatalf("expected %s, got %s", TypeServer, ce.Type)
			}
			if ce.ErrorCode != tt.expectCode {
				t.Errorf("expected code %s, got %s", tt.expectCode, ce.ErrorCode)
			}
		})
	}
}

func TestFromResponse_ServerErrorFields(t *testing.T) {
	body := []byte(`{"error_code":"GPU_POOL_DOWN","suggested_action":"retry later","support_reference":"INC-1001","message":"render pool offline"}`)
	ce := FromResponse(500, http.Header{}, body)

	if ce.SuggestedAction != "retry later" {
		t.Errorf("unexpected action: %s", ce.SuggestedAction)
	}
	if ce.SupportReference != "INC-1001" {
		t.Errorf("unexpected reference: %s", ce.SupportReference)
	}
	if !ce.TransientServer() {
		t.Error("retry suggestion should mark the error transient")
	}
}

func TestFromResponse_Other4xxStaysClosed(t *testing.T) {
	tests := []struct {
		status     int
		expectCode string
	}{
		{400, "HTTP_400"},
		{401, "HTTP_401"},
		{404, "HTTP_404"},
	}

	for _, tt := range tests {
		ce := FromResponse(tt.status, http.Header{}, nil)
		if ce.Type != TypeServer {
			t.Errorf("status %d: expected %s, got %s", tt.status, TypeServer, ce.Type)
		}
		if ce.ErrorCode != tt.expectCode {
			t.Errorf("status %d: expected code %s, got %s", tt.status, tt.expectCode, ce.ErrorCode)
		}
	}
}

func TestFromTransportError_TimeoutVsCancel(t *testing.T) {
	// Attempt timer fired: the cause pins it as a timeout.
	timedOut, cancel := context.WithTimeoutCause(context.Background(), time.Nanosecond, ErrAttemptTimeout)
	defer cancel()
	<-timedOut.Done()

	ce := FromTransportError(timedOut, timedOut.Err())
	if ce.Type != TypeTimeout {
		t.Errorf("expected %s, got %s", TypeTimeout, ce.Type)
	}

	// Caller cancelled: same abort mechanics, different classification.
	cancelled, cancelNow := context.WithCancel(context.Background())
	cancelNow()

	ce = FromTransportError(cancelled, cancelled.Err())
	if ce.Type != TypeCancelled {
		t.Errorf("expected %s, got %s", TypeCancelled, ce.Type)
	}
}

func TestFromTransportError_Network(t *testing.T) {
	ce := FromTransportError(context.Background(), errors.New("dial tcp: connection refused"))

	if ce.Type != TypeNetwork {
		t.Fatalf("expected %s, got %s", TypeNetwork, ce.Type)
	}
	if ce.Message == "" {
		t.Error("expected the transport failure message to surface")
	}
}

func TestRetryable(t *testing.T) {
	after := 5 * time.Second
	tests := []struct {
		name   string
		err    *Error
		expect bool
	}{
		{"network", Network("", nil), true},
		{"timeout", Timeout(""), true},
		{"validation", Invalid("prompt", "required"), false},
		{"cancelled", Cancelled(""), false},
		{"server unknown", Server("", "UNKNOWN", "", ""), false},
		{"server 503", Server("", "HTTP_503", "", ""), true},
		{"server retry hint", Server("", "MODEL_BUSY", "please retry", ""), true},
		{"rate limit with retryAfter", RateLimit("", &after, nil), true},
		{"rate limit without retryAfter", RateLimit("", nil, nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Retryable(); got != tt.expect {
				t.Errorf("Retryable() = %v, want %v", got, tt.expect)
			}
		})
	}
}

func TestTypeOf(t *testing.T) {
	if got := TypeOf(Timeout("")); got != TypeTimeout {
		t.Errorf("expected %s, got %s", TypeTimeout, got)
	}
	if got := TypeOf(errors.New("plain")); got != "" {
		t.Errorf("expected empty type for non-client error, got %s", got)
	}
}

package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

// responseBody covers the error envelopes the generation service emits.
// 422 bodies carry a detail list; 5xx bodies carry flat error fields.
// Detail is raw because FastAPI-style services send either a string or a
// list of violation objects under the same key.
type responseBody struct {
	Detail           json.RawMessage `json:"detail"`
	Message          string          `json:"message"`
	ErrorCode        string          `json:"error_code"`
	SuggestedAction  string          `json:"suggested_action"`
	SupportReference string          `json:"support_reference"`
}

type detailItem struct {
	Loc  []json.RawMessage `json:"loc"`
	Msg  string            `json:"msg"`
	Type string            `json:"type"`
}

// FromResponse maps a non-2xx response to exactly one client error.
// The mapping is total: every status yields a classified variant and no
// generic fallback masks an enumerated case.
func FromResponse(status int, header http.Header, body []byte) *Error {
	switch {
	case status == http.StatusUnprocessableEntity:
		return fromValidationBody(body)
	case status == http.StatusTooManyRequests:
		return fromRateLimit(header, body)
	case status >= 500:
		return fromServerBody(status, body)
	default:
		// Remaining 4xx (auth, not found, bad request shapes the validator
		// cannot produce) are server-side contract failures from the
		// client's point of view.
		parsed := parseBody(body)
		msg := parsed.Message
		if msg == "" {
			msg = detailString(parsed.Detail)
		}
		if msg == "" {
			msg = http.StatusText(status)
		}
		return Server(msg, fmt.Sprintf("HTTP_%d", status), parsed.SuggestedAction, parsed.SupportReference)
	}
}

// FromTransportError classifies a failure that produced no response.
// ctx is the attempt context; its cancellation cause decides between
// timeout_error (attempt timer fired) and cancelled_error (caller
// withdrew). Other failures are network errors.
func FromTransportError(ctx context.Context, err error) *Error {
	if ctx != nil && ctx.Err() != nil {
		cause := context.Cause(ctx)
		switch {
		case errors.Is(cause, ErrAttemptTimeout):
			return Timeout("attempt deadline exceeded")
		case errors.Is(ctx.Err(), context.Canceled):
			return Cancelled("cancelled by caller")
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return Timeout("deadline exceeded")
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout("deadline exceeded")
	case errors.Is(err, context.Canceled):
		return Cancelled("cancelled by caller")
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout(netErr.Error())
	}

	msg := "network failure"
	if err != nil {
		msg = err.Error()
	}
	return Network(msg, err)
}

func fromValidationBody(body []byte) *Error {
	parsed := parseBody(body)

	var items []detailItem
	if len(parsed.Detail) > 0 && json.Unmarshal(parsed.Detail, &items) == nil && len(items) > 0 {
		fields := make([]FieldViolation, 0, len(items))
		for _, it := range items {
			fields = append(fields, FieldViolation{Field: lastLoc(it.Loc), Message: it.Msg})
		}
		return Validation(fields)
	}

	msg := detailString(parsed.Detail)
	if msg == "" {
		msg = "request rejected by server validation"
	}
	return Validation([]FieldViolation{{Field: "request", Message: msg}})
}

func fromRateLimit(header http.Header, body []byte) *Error {
	var retryAfter *time.Duration
	if v := header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			d := time.Duration(secs) * time.Second
			retryAfter = &d
		}
	}

	var info *LimitInfo
	limit := headerInt(header, "X-RateLimit-Limit")
	remaining := headerInt(header, "X-RateLimit-Remaining")
	reset := headerTime(header, "X-RateLimit-Reset")
	if limit != nil || remaining != nil || reset != nil {
		info = &LimitInfo{Limit: limit, Remaining: remaining, ResetTime: reset}
	}

	parsed := parseBody(body)
	msg := parsed.Message
	if msg == "" {
		msg = detailString(parsed.Detail)
	}
	return RateLimit(msg, retryAfter, info)
}

func fromServerBody(status int, body []byte) *Error {
	parsed := parseBody(body)

	msg := parsed.Message
	if msg == "" {
		msg = detailString(parsed.Detail)
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	code := parsed.ErrorCode
	if code == "" {
		switch status {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			code = fmt.Sprintf("HTTP_%d", status)
		default:
			code = "UNKNOWN"
		}
	}

	return Server(msg, code, parsed.SuggestedAction, parsed.SupportReference)
}

func parseBody(body []byte) responseBody {
	var parsed responseBody
	if len(body) > 0 {
		_ = json.Unmarshal(body, &parsed)
	}
	return parsed
}

// detailString extracts a plain-string detail field, if that is what the
// server sent.
func detailString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return ""
}

// lastLoc returns the final segment of a detail location path, which names
// the offending field ("body"/"duration_seconds" → "duration_seconds").
func lastLoc(loc []json.RawMessage) string {
	for i := len(loc) - 1; i >= 0; i-- {
		var s string
		if json.Unmarshal(loc[i], &s) == nil && s != "" {
			return s
		}
		var n int
		if json.Unmarshal(loc[i], &n) == nil {
			continue
		}
	}
	return "request"
}

func headerInt(header http.Header, key string) *int {
	v := header.Get(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

func headerTime(header http.Header, key string) *time.Time {
	v := header.Get(key)
	if v == "" {
		return nil
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	t := time.Unix(secs, 0).UTC()
	return &t
}

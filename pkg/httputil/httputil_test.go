package httputil

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/deputy/pkg/errors"
)

func TestCheckResponse(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   errors.Code
	}{
		{"ok", http.StatusOK, "", ""},
		{"not found", http.StatusNotFound, "", errors.ErrCodeNotFound},
		{"too many requests", http.StatusTooManyRequests, "", errors.ErrCodeRateLimited},
		{"github 403", http.StatusForbidden, `{"message":"API rate limit exceeded for 1.2.3.4."}`, errors.ErrCodeRateLimited},
		{"secondary limit", http.StatusForbidden, `see https://docs.github.com/rest#rate-limiting`, errors.ErrCodeRateLimited},
		{"higher limit", http.StatusForbidden, `Authenticated requests get a higher rate limit.`, errors.ErrCodeRateLimited},
		{"plain forbidden", http.StatusForbidden, "nope", errors.ErrCodeNetwork},
		{"unauthorized", http.StatusUnauthorized, "", errors.ErrCodeUnauthorized},
		{"server error", http.StatusBadGateway, "", errors.ErrCodeNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckResponse(http.MethodGet, "https://api.github.com/repos/a/b", tt.status, []byte(tt.body))
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if got := errors.GetCode(err); got != tt.want {
				t.Errorf("code = %s, want %s (err %v)", got, tt.want, err)
			}
			var respErr *ResponseError
			if !stderrors.As(err, &respErr) || respErr.Status != tt.status {
				t.Errorf("expected ResponseError with status %d, got %v", tt.status, err)
			}
		})
	}
}

func TestCheckResponseTruncatesBody(t *testing.T) {
	err := CheckResponse(http.MethodGet, "https://example.com", 500, []byte(strings.Repeat("x", 4096)))
	var respErr *ResponseError
	if !stderrors.As(err, &respErr) {
		t.Fatalf("expected ResponseError, got %v", err)
	}
	if len(respErr.Body) != maxBodyInError {
		t.Errorf("body length = %d, want %d", len(respErr.Body), maxBodyInError)
	}
}

func TestTransportError(t *testing.T) {
	if got := errors.GetCode(TransportError("GET", "u", context.DeadlineExceeded)); got != errors.ErrCodeTimeout {
		t.Errorf("deadline code = %s, want TIMEOUT", got)
	}
	if got := errors.GetCode(TransportError("GET", "u", stderrors.New("connection refused"))); got != errors.ErrCodeNetwork {
		t.Errorf("refused code = %s, want NETWORK_ERROR", got)
	}
	if err := TransportError("GET", "u", context.Canceled); !stderrors.Is(err, context.Canceled) {
		t.Errorf("cancellation should pass through, got %v", err)
	}
}

func TestCheckUTF8(t *testing.T) {
	if err := CheckUTF8("u", []byte("serde")); err != nil {
		t.Errorf("valid UTF-8 rejected: %v", err)
	}
	if err := CheckUTF8("u", []byte{0xff, 0xfe}); !errors.Is(err, errors.ErrCodeDecode) {
		t.Errorf("invalid UTF-8 error = %v, want DECODE_ERROR", err)
	}
}

func TestRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("retries network errors", func(t *testing.T) {
		calls := 0
		err := Retry(ctx, 3, time.Millisecond, func() error {
			calls++
			if calls < 3 {
				return errors.New(errors.ErrCodeNetwork, "flaky")
			}
			return nil
		})
		if err != nil || calls != 3 {
			t.Errorf("err = %v, calls = %d; want nil, 3", err, calls)
		}
	})

	t.Run("does not retry not found", func(t *testing.T) {
		calls := 0
		err := Retry(ctx, 3, time.Millisecond, func() error {
			calls++
			return errors.New(errors.ErrCodeNotFound, "missing")
		})
		if !errors.IsNotFound(err) || calls != 1 {
			t.Errorf("err = %v, calls = %d; want NOT_FOUND, 1", err, calls)
		}
	})

	t.Run("does not retry rate limits", func(t *testing.T) {
		calls := 0
		Retry(ctx, 3, time.Millisecond, func() error {
			calls++
			return errors.New(errors.ErrCodeRateLimited, "slow down")
		})
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})
}

func TestUserAgentAndRequestID(t *testing.T) {
	if !strings.HasPrefix(UserAgent(), "deputy/") {
		t.Errorf("UserAgent() = %q", UserAgent())
	}
	a, b := NewRequestID(), NewRequestID()
	if a == b || len(a) != 36 {
		t.Errorf("request IDs %q, %q should be distinct UUIDs", a, b)
	}
}

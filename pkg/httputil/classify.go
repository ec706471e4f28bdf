package httputil

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/matzehuels/deputy/pkg/errors"
)

// maxBodyInError bounds how much of a response body is kept in an error.
const maxBodyInError = 512

var rateLimitPhrases = []string{
	"rate limit exceeded",
	"higher rate limit",
	"#rate-limiting",
}

// IsRateLimitMessage reports whether a response body uses one of the phrases
// registries send alongside a rate limit rejection.
func IsRateLimitMessage(body string) bool {
	lower := strings.ToLower(body)
	for _, phrase := range rateLimitPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// ResponseError describes a non-success HTTP response.
type ResponseError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *ResponseError) Error() string {
	msg := e.Method + " " + e.URL + ": " + http.StatusText(e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// CheckResponse classifies a response by status code and body.
// It returns nil for 2xx responses:
//
//	404                               -> NOT_FOUND
//	429 or a rate limit phrase        -> RATE_LIMITED
//	any other status >= 400           -> NETWORK_ERROR
//
// GitHub answers rate limits with 403 and a message, hence the body check.
func CheckResponse(method, url string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	text := string(body)
	if len(text) > maxBodyInError {
		text = text[:maxBodyInError]
	}
	respErr := &ResponseError{Method: method, URL: url, Status: status, Body: strings.TrimSpace(text)}

	switch {
	case status == http.StatusNotFound:
		return errors.Wrap(errors.ErrCodeNotFound, respErr, "%s not found", url)
	case status == http.StatusTooManyRequests || IsRateLimitMessage(string(body)):
		return errors.Wrap(errors.ErrCodeRateLimited, respErr, "rate limited by %s", hostOf(url))
	case status == http.StatusUnauthorized:
		return errors.Wrap(errors.ErrCodeUnauthorized, respErr, "unauthorized request to %s", hostOf(url))
	default:
		return errors.Wrap(errors.ErrCodeNetwork, respErr, "%s %s returned %d", method, url, status)
	}
}

// TransportError classifies a failure from http.Client.Do.
func TransportError(method, url string, err error) error {
	var netErr net.Error
	switch {
	case stderrors.Is(err, context.DeadlineExceeded),
		stderrors.As(err, &netErr) && netErr.Timeout():
		return errors.Wrap(errors.ErrCodeTimeout, err, "%s %s timed out", method, url)
	case stderrors.Is(err, context.Canceled):
		return err
	}
	return errors.Wrap(errors.ErrCodeNetwork, err, "%s %s failed", method, url)
}

// DecodeError wraps a body decoding failure.
func DecodeError(url string, err error) error {
	return errors.Wrap(errors.ErrCodeDecode, err, "invalid response from %s", url)
}

// CheckUTF8 returns a DECODE_ERROR when body is not valid UTF-8.
func CheckUTF8(url string, body []byte) error {
	if !utf8.Valid(body) {
		return errors.New(errors.ErrCodeDecode, "response from %s is not valid UTF-8", url)
	}
	return nil
}

func hostOf(rawURL string) string {
	s := rawURL
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return s
}

package fetcher

import (
	"io"
	"log/slog"
	"net/http"
	"time"
)

// UserAgent is sent on every upstream request.
const UserAgent = "kubeviz"

// userAgentTransport sets the User-Agent header on every request.
type userAgentTransport struct {
	agent string
	next  http.RoundTripper
}

// WithUserAgent wraps a RoundTripper so every request carries agent.
func WithUserAgent(agent string, next http.RoundTripper) http.RoundTripper {
	return &userAgentTransport{agent: agent, next: next}
}

func (u *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", u.agent)
	return u.next.RoundTrip(req)
}

// loggingTransport logs request method/URL and response status.
type loggingTransport struct {
	logger *slog.Logger
	next   http.RoundTripper
}

// WithLogging wraps a RoundTripper with request/response logging at debug
// level. A nil logger uses slog.Default() at request time.
func WithLogging(logger *slog.Logger, next http.RoundTripper) http.RoundTripper {
	return &loggingTransport{logger: logger, next: next}
}

func (l *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	logger := l.logger
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()
	resp, err := l.next.RoundTrip(req)
	elapsed := time.Since(start)

	if err != nil {
		logger.Debug("upstream request failed",
			"method", req.Method,
			"url", req.URL.String(),
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return resp, err
	}

	logger.Debug("upstream request completed",
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"duration_ms", elapsed.Milliseconds(),
	)
	return resp, nil
}

// drainAndClose reads remaining body bytes and closes, preventing connection leaks.
func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, body)
	body.Close()
}

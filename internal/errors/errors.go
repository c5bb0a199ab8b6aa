package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// Code classifies a VizError.
type Code string

// Error codes. Hard codes abort a poll cycle and are broadcast to viewers;
// soft codes only describe a degraded but valid graph.
const (
	ErrUpstreamUnreachable    Code = "UPSTREAM_UNREACHABLE"
	ErrMalformedResponse      Code = "MALFORMED_RESPONSE"
	ErrIncompleteGraph        Code = "INCOMPLETE_GRAPH"
	ErrMissingContainerStatus Code = "MISSING_CONTAINER_STATUS"
)

// Codes lists every error code.
var Codes = []Code{ErrUpstreamUnreachable, ErrMalformedResponse, ErrIncompleteGraph, ErrMissingContainerStatus}

// Hard reports whether errors with this code abort the poll cycle.
func (c Code) Hard() bool {
	return c == ErrUpstreamUnreachable || c == ErrMalformedResponse
}

// defaultTTL is the auto-expiry duration for errors not re-reported.
const defaultTTL = 5 * time.Minute

// VizError is a typed error with a viewer-facing message.
type VizError struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Component string `json:"component"`
	Timestamp int64  `json:"timestamp"`
	Err       error  `json:"-"`
}

// Error implements the error interface.
func (e *VizError) Error() string {
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As compatibility.
func (e *VizError) Unwrap() error {
	return e.Err
}

// Unreachable builds an UPSTREAM_UNREACHABLE error for a failed request.
func Unreachable(component string, err error) *VizError {
	return &VizError{
		Code:      ErrUpstreamUnreachable,
		Message:   fmt.Sprintf("Request to k8s failed.\nError message: %v", err),
		Component: component,
		Timestamp: time.Now().UnixMilli(),
		Err:       err,
	}
}

// MalformedWithSummary builds a MALFORMED_RESPONSE error headed by summary.
// body is the raw upstream response, already truncated by the caller.
func MalformedWithSummary(component, summary string, err error, body string) *VizError {
	return &VizError{
		Code: ErrMalformedResponse,
		Message: summary + "\n" +
			fmt.Sprintf("Error message: %v\n", err) +
			"--- response from k8s API call ---\n" +
			body + "\n" +
			"--- response end ---\n",
		Component: component,
		Timestamp: time.Now().UnixMilli(),
		Err:       err,
	}
}

// CodeOf returns the Code of the first VizError in err's chain, or "".
func CodeOf(err error) Code {
	var ve *VizError
	if stderrors.As(err, &ve) {
		return ve.Code
	}
	return ""
}

// entry wraps a VizError with its last-reported time for expiry tracking.
type entry struct {
	err        VizError
	lastReport time.Time
}

// ErrorCollector is a thread-safe store for active errors.
// Errors are keyed by Code+Component and auto-expire after 5 minutes
// if not re-reported.
type ErrorCollector struct {
	mu      sync.Mutex
	clock   clock.PassiveClock
	entries map[string]entry // key = string(Code) + "|" + Component
}

// NewErrorCollector creates an ErrorCollector with the given clock.
func NewErrorCollector(clk clock.PassiveClock) *ErrorCollector {
	return &ErrorCollector{
		clock:   clk,
		entries: make(map[string]entry),
	}
}

func key(code Code, component string) string {
	return string(code) + "|" + component
}

// Report stores or refreshes an error. The dedup key is Code+Component.
func (ec *ErrorCollector) Report(err VizError) {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	ec.entries[key(err.Code, err.Component)] = entry{
		err:        err,
		lastReport: ec.clock.Now(),
	}
}

// Resolve drops an error once the condition behind it has cleared.
func (ec *ErrorCollector) Resolve(code Code, component string) {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	delete(ec.entries, key(code, component))
}

// GetActiveErrors returns all errors that have been reported within the TTL window.
func (ec *ErrorCollector) GetActiveErrors() []VizError {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	now := ec.clock.Now()
	result := make([]VizError, 0, len(ec.entries))
	for k, e := range ec.entries {
		if now.Sub(e.lastReport) > defaultTTL {
			delete(ec.entries, k)
			continue
		}
		result = append(result, e.err)
	}
	return result
}

// GetActiveErrorCodes returns the sorted, deduplicated codes of active errors.
func (ec *ErrorCollector) GetActiveErrorCodes() []string {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	now := ec.clock.Now()
	seen := make(map[Code]struct{})
	codes := make([]string, 0)
	for k, e := range ec.entries {
		if now.Sub(e.lastReport) > defaultTTL {
			delete(ec.entries, k)
			continue
		}
		if _, ok := seen[e.err.Code]; !ok {
			seen[e.err.Code] = struct{}{}
			codes = append(codes, string(e.err.Code))
		}
	}
	sort.Strings(codes)
	return codes
}

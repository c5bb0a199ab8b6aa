package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	testingclock "k8s.io/utils/clock/testing"
)

func newFakeClock() *testingclock.FakeClock {
	return testingclock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestVizError_Implements_Error(t *testing.T) {
	ve := VizError{
		Code:      ErrUpstreamUnreachable,
		Message:   "connection refused",
		Component: "fetcher.pods",
	}

	var err error = &ve
	if err.Error() != "connection refused" {
		t.Fatalf("expected Error() = %q, got %q", "connection refused", err.Error())
	}
}

func TestUnreachable_MessageAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("dial tcp 127.0.0.1:8001: connect: connection refused")
	ve := Unreachable("fetcher.nodes", cause)

	if ve.Code != ErrUpstreamUnreachable {
		t.Fatalf("code = %s", ve.Code)
	}
	want := "Request to k8s failed.\nError message: dial tcp 127.0.0.1:8001: connect: connection refused"
	if ve.Message != want {
		t.Errorf("message = %q, want %q", ve.Message, want)
	}
	if !stderrors.Is(ve, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestMalformedWithSummary_CarriesBody(t *testing.T) {
	ve := MalformedWithSummary("fetcher.pods", "Unable to parse and extract information from k8s response.",
		fmt.Errorf("unexpected end of JSON input"), `{"items": [`)

	if ve.Code != ErrMalformedResponse {
		t.Fatalf("code = %s", ve.Code)
	}
	for _, part := range []string{
		"Unable to parse and extract information from k8s response.\n",
		"Error message: unexpected end of JSON input\n",
		"--- response from k8s API call ---\n{\"items\": [\n--- response end ---\n",
	} {
		if !strings.Contains(ve.Message, part) {
			t.Errorf("message missing %q:\n%s", part, ve.Message)
		}
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("poll: %w", Unreachable("fetcher.pods", fmt.Errorf("boom")))
	if got := CodeOf(wrapped); got != ErrUpstreamUnreachable {
		t.Errorf("CodeOf(wrapped) = %q", got)
	}
	if got := CodeOf(fmt.Errorf("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
}

func TestCode_Hard(t *testing.T) {
	if !ErrUpstreamUnreachable.Hard() || !ErrMalformedResponse.Hard() {
		t.Error("fetch errors must be hard")
	}
	if ErrIncompleteGraph.Hard() || ErrMissingContainerStatus.Hard() {
		t.Error("graph warnings must be soft")
	}
	hard := 0
	for _, c := range Codes {
		if c.Hard() {
			hard++
		}
	}
	if hard != 2 || len(Codes) != 4 {
		t.Errorf("Codes = %v, hard = %d", Codes, hard)
	}
}

func TestErrorCollector_Report(t *testing.T) {
	clk := newFakeClock()
	ec := NewErrorCollector(clk)

	ec.Report(VizError{
		Code:      ErrUpstreamUnreachable,
		Message:   "connection refused",
		Component: "fetcher.pods",
		Timestamp: clk.Now().UnixMilli(),
	})

	active := ec.GetActiveErrors()
	if len(active) != 1 {
		t.Fatalf("expected 1 active error, got %d", len(active))
	}
	if active[0].Code != ErrUpstreamUnreachable {
		t.Fatalf("expected code %s, got %s", ErrUpstreamUnreachable, active[0].Code)
	}
}

func TestErrorCollector_AutoExpiry(t *testing.T) {
	clk := newFakeClock()
	ec := NewErrorCollector(clk)

	ec.Report(VizError{Code: ErrIncompleteGraph, Message: "no master", Component: "graph"})

	// Beyond the 5-minute TTL.
	clk.Step(6 * time.Minute)

	if active := ec.GetActiveErrors(); len(active) != 0 {
		t.Fatalf("expected 0 active errors after expiry, got %d", len(active))
	}
}

func TestErrorCollector_RefreshPreventsExpiry(t *testing.T) {
	clk := newFakeClock()
	ec := NewErrorCollector(clk)

	ve := VizError{Code: ErrMalformedResponse, Message: "bad json", Component: "fetcher.nodes"}
	ec.Report(ve)

	clk.Step(3 * time.Minute)
	ec.Report(ve)
	clk.Step(3 * time.Minute)

	if active := ec.GetActiveErrors(); len(active) != 1 {
		t.Fatalf("expected 1 active error (refreshed), got %d", len(active))
	}
}

func TestErrorCollector_Resolve(t *testing.T) {
	ec := NewErrorCollector(newFakeClock())

	ec.Report(VizError{Code: ErrIncompleteGraph, Component: "graph"})
	ec.Report(VizError{Code: ErrIncompleteGraph, Component: "other"})
	ec.Resolve(ErrIncompleteGraph, "graph")

	active := ec.GetActiveErrors()
	if len(active) != 1 || active[0].Component != "other" {
		t.Fatalf("unexpected active errors after Resolve: %+v", active)
	}
}

func TestErrorCollector_ThreadSafe(t *testing.T) {
	clk := newFakeClock()
	ec := NewErrorCollector(clk)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			ec.Report(VizError{
				Code:      Code(fmt.Sprintf("ERR_%d", idx%5)),
				Message:   fmt.Sprintf("error %d", idx),
				Component: fmt.Sprintf("comp_%d", idx%3),
			})
			_ = ec.GetActiveErrors()
			_ = ec.GetActiveErrorCodes()
		}(i)
	}
	wg.Wait()

	if len(ec.GetActiveErrors()) == 0 {
		t.Fatal("expected some active errors after concurrent writes")
	}
}

func TestErrorCollector_GetActiveErrorCodes(t *testing.T) {
	ec := NewErrorCollector(newFakeClock())

	ec.Report(VizError{Code: ErrUpstreamUnreachable, Component: "fetcher.pods"})
	ec.Report(VizError{Code: ErrMalformedResponse, Component: "fetcher.nodes"})
	ec.Report(VizError{Code: ErrUpstreamUnreachable, Component: "fetcher.nodes"})

	codes := ec.GetActiveErrorCodes()
	if len(codes) != 2 {
		t.Fatalf("expected 2 unique codes, got %d: %v", len(codes), codes)
	}
	if codes[0] != string(ErrMalformedResponse) || codes[1] != string(ErrUpstreamUnreachable) {
		t.Errorf("codes not sorted: %v", codes)
	}
}

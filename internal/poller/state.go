package poller

import (
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/kubeadapt/kubeviz/internal/observability"
)

// CycleState is the stage a poll cycle is in.
type CycleState string

// Poll cycle stages, in order.
const (
	StateIdle          CycleState = "idle"
	StateFetchingPods  CycleState = "fetching_pods"
	StateFetchingNodes CycleState = "fetching_nodes"
	StateBuilding      CycleState = "building"
	StateBroadcasting  CycleState = "broadcasting"
)

// CycleTracker counts cycles per stage and remembers how the last one ended.
// Cycles may overlap, so every stage holds a count rather than a flag.
type CycleTracker struct {
	mu          sync.RWMutex
	clock       clock.PassiveClock
	metrics     *observability.Metrics
	inFlight    map[CycleState]int
	lastState   CycleState
	lastReason  string
	lastSuccess time.Time
	lastFailure time.Time
}

// TrackerStatus is a point-in-time view of a CycleTracker.
type TrackerStatus struct {
	InFlight    map[CycleState]int `json:"in_flight"`
	LastState   CycleState         `json:"last_state"`
	LastReason  string             `json:"last_reason,omitempty"`
	LastSuccess time.Time          `json:"last_success,omitzero"`
	LastFailure time.Time          `json:"last_failure,omitzero"`
}

// NewCycleTracker creates an idle tracker. metrics may be nil.
func NewCycleTracker(clk clock.PassiveClock, metrics *observability.Metrics) *CycleTracker {
	return &CycleTracker{
		clock:     clk,
		metrics:   metrics,
		inFlight:  make(map[CycleState]int),
		lastState: StateIdle,
	}
}

// Cycle is one tracked poll cycle.
type Cycle struct {
	tracker *CycleTracker
	state   CycleState
	done    bool
}

// Begin starts tracking a new cycle in StateIdle.
func (t *CycleTracker) Begin() *Cycle {
	c := &Cycle{tracker: t, state: StateIdle}
	t.mu.Lock()
	t.enter(StateIdle)
	t.mu.Unlock()
	return c
}

// TransitionTo moves the cycle to state.
func (c *Cycle) TransitionTo(state CycleState) {
	t := c.tracker
	t.mu.Lock()
	defer t.mu.Unlock()
	if c.done {
		return
	}
	t.leave(c.state)
	t.enter(state)
	c.state = state
	t.lastState = state
}

// Succeed ends the cycle successfully.
func (c *Cycle) Succeed() {
	c.finish("")
}

// Fail ends the cycle with reason.
func (c *Cycle) Fail(reason string) {
	c.finish(reason)
}

func (c *Cycle) finish(reason string) {
	t := c.tracker
	t.mu.Lock()
	defer t.mu.Unlock()
	if c.done {
		return
	}
	c.done = true
	t.leave(c.state)
	t.lastState = StateIdle
	t.lastReason = reason
	if reason == "" {
		t.lastSuccess = t.clock.Now()
	} else {
		t.lastFailure = t.clock.Now()
	}
}

// enter and leave must be called with mu held.
func (t *CycleTracker) enter(state CycleState) {
	t.inFlight[state]++
	if t.metrics != nil {
		t.metrics.CycleState.WithLabelValues(string(state)).Inc()
	}
}

func (t *CycleTracker) leave(state CycleState) {
	t.inFlight[state]--
	if t.inFlight[state] <= 0 {
		delete(t.inFlight, state)
	}
	if t.metrics != nil {
		t.metrics.CycleState.WithLabelValues(string(state)).Dec()
	}
}

// InFlight returns the number of cycles that have begun but not finished.
func (t *CycleTracker) InFlight() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, c := range t.inFlight {
		n += c
	}
	return n
}

// Status returns a copy of the tracker's state.
func (t *CycleTracker) Status() TrackerStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	inFlight := make(map[CycleState]int, len(t.inFlight))
	for k, v := range t.inFlight {
		inFlight[k] = v
	}
	return TrackerStatus{
		InFlight:    inFlight,
		LastState:   t.lastState,
		LastReason:  t.lastReason,
		LastSuccess: t.lastSuccess,
		LastFailure: t.lastFailure,
	}
}

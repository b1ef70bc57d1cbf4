package engine

import (
	"log/slog"
)

// State is a step of one extraction.
type State string

const (
	StateIdle           State = "IDLE"
	StateGateWait       State = "GATE_WAIT"
	StateNavigating     State = "NAVIGATING"
	StateClassifying    State = "CLASSIFYING"
	StatePremiumBlocked State = "PREMIUM_BLOCKED"
	StateMediaWait      State = "MEDIA_WAIT"
	StateCapturing      State = "CAPTURING"
	StateProbing        State = "PROBING"
	StateSelecting      State = "SELECTING"
	StateSucceeded      State = "SUCCEEDED"
	StateFailed         State = "FAILED"
)

// trace records the states an extraction walks through and logs each step.
type trace struct {
	channel string
	states  []string
}

func newTrace(channel string) *trace {
	return &trace{channel: channel, states: []string{string(StateIdle)}}
}

func (t *trace) enter(s State, attrs ...any) {
	t.states = append(t.states, string(s))
	slog.Debug("extraction state", append([]any{"channel", t.channel, "state", s}, attrs...)...)
}

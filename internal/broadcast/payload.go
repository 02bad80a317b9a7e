// Package broadcast decides when the live state is worth emitting and fans
// emitted payloads out to subscribers.
//
// # Gate
//
// The Gate compares each candidate payload with the last emitted one,
// field by field, against per-field thresholds. A change at or above one
// threshold unit is urgent and pulls the adaptive interval toward its
// minimum. Quiet periods let the interval relax back to nominal, and an
// idle ceiling forces a keep-alive emit so consumers never go stale.
//
// # Bus
//
// The Bus keeps a FIFO dispatch queue. Publish only enqueues; Flush
// delivers queued payloads to handler and channel subscribers. Channel
// subscribers never block the engine: a full channel drops the payload and
// counts it.
package broadcast

import (
	"github.com/san-kum/choreo/internal/signal"
)

// Context carries the scalar inputs consumers may want besides the state.
type Context struct {
	Section        string  `json:"section"`
	Scroll         float64 `json:"scroll"`
	UserEnergy     float64 `json:"userEnergy"`
	MouseActivity  float64 `json:"mouseActivity"`
	ScrollVelocity float64 `json:"scrollVelocity"`
	HoveredCount   float64 `json:"hoveredCount"`
}

// Context field names in flattened form.
const (
	CtxScroll         = "context.scroll"
	CtxUserEnergy     = "context.userEnergy"
	CtxMouseActivity  = "context.mouseActivity"
	CtxScrollVelocity = "context.scrollVelocity"
	CtxHoveredCount   = "context.hoveredCount"

	statePrefix      = "state."
	multiplierPrefix = "multipliers."
)

// Payload is one emitted snapshot.
type Payload struct {
	State       signal.Vector `json:"state"`
	Multipliers signal.Vector `json:"multipliers"`
	Context     Context       `json:"context"`
}

// Clone returns a deep copy.
func (p Payload) Clone() Payload {
	return Payload{
		State:       p.State.Clone(),
		Multipliers: p.Multipliers.Clone(),
		Context:     p.Context,
	}
}

// Flatten returns every numeric field keyed by its dotted path.
func (p Payload) Flatten() map[string]float64 {
	out := make(map[string]float64, len(p.State)+len(p.Multipliers)+5)
	for k, v := range p.State {
		out[statePrefix+k] = v
	}
	for k, v := range p.Multipliers {
		out[multiplierPrefix+k] = v
	}
	out[CtxScroll] = p.Context.Scroll
	out[CtxUserEnergy] = p.Context.UserEnergy
	out[CtxMouseActivity] = p.Context.MouseActivity
	out[CtxScrollVelocity] = p.Context.ScrollVelocity
	out[CtxHoveredCount] = p.Context.HoveredCount
	return out
}

// StateKey returns the flattened key of a state field.
func StateKey(field string) string { return statePrefix + field }

// MultiplierKey returns the flattened key of a multiplier.
func MultiplierKey(name string) string { return multiplierPrefix + name }

// Package engine runs the interaction-to-state control loop.
//
// One Engine owns every mutable piece of the loop:
//
//   - samplers stage DOM input into a buffer
//   - the dynamics smoother drains that buffer once per tick
//   - the resolver picks the dominant section and its profile
//   - the synthesizer builds a clamped target vector
//   - the interpolator moves the live state toward the target
//   - the broadcast gate decides whether the live state goes out
//
// # Lifecycle
//
//	eng := engine.New(doc, registry, engine.DefaultParams())
//	eng.Subscribe("renderer", render)
//	eng.Start(engine.NewFrameClock(60))
//	defer eng.Close()
//
// Teardown detaches every listener, cancels the tick and clears all state.
// It is idempotent, and a torn-down engine can be started again. Close
// additionally shuts the bus; a closed engine cannot be restarted.
//
// # Thread Safety
//
// Ticks and lifecycle calls are serialized by the engine. Input events may
// arrive from any goroutine. State is lock-free.
package engine

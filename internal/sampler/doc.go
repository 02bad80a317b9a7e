// Package sampler converts raw page events into staged input signals.
//
// Samplers run on whatever goroutine delivers events. They only write into a
// shared [Buffer]; the engine drains that buffer exactly once per tick, so
// a burst of a hundred pointer events still produces a single dynamics
// update.
//
// Velocities are measured as distance / max(16ms, Δt) on a 16 ms basis and
// blended 70/30 with the previous sample to absorb timestamp jitter.
package sampler

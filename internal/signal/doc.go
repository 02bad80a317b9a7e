// Package signal provides the value types shared by every stage of the
// choreography pipeline.
//
// The package defines:
//
//   - [Vector]: a named set of float64 fields (target state, live state, multipliers)
//   - [FieldSpec]: the declared range of one output field, plus wrap/discrete flags
//   - [Fields]: the registry of output fields and their hard clamps
//
// # Invariant
//
// Every synthesized field is passed through its [FieldSpec.Clamp] before it
// leaves the synthesizer. Downstream renderers rely on these ranges
// (a negative density or a hue of 360 breaks their numeric assumptions).
package signal

// Package analysis inspects recorded traces.
//
//   - [Analyze]: power spectrum of one live field
//   - [GeneratePhasePortrait]: a field plotted against its rate of change
//
// # Flicker Detection
//
// A renderer fed by the engine should drift, not strobe. Spectral power
// concentrated at or above [FlickerHz] points at oscillating targets, usually
// a section resolver flipping between neighbours:
//
//	spec, err := analysis.Analyze(tr, signal.Intensity)
//	if err == nil && spec.FlickerRatio() > 0.2 {
//	    // visible flicker
//	}
package analysis

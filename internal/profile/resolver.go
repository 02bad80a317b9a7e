package profile

import "sort"

// ResolverParams tunes section switching.
type ResolverParams struct {
	// SignificanceFloor is the minimum ratio for a section to count as visible.
	SignificanceFloor float64
	// HysteresisFloor is the lead a candidate needs over the active section.
	HysteresisFloor float64
}

func DefaultResolverParams() ResolverParams {
	return ResolverParams{SignificanceFloor: 0.05, HysteresisFloor: 0.12}
}

// Resolver picks the dominant visible section with hysteresis.
type Resolver struct {
	p      ResolverParams
	active string
}

func NewResolver(p ResolverParams) *Resolver {
	return &Resolver{p: p}
}

// Resolve returns the active section id and its current visibility ratio.
// The id is empty until some section has been significantly visible.
func (r *Resolver) Resolve(ratios map[string]float64) (string, float64) {
	candidate, best := dominant(ratios)
	if candidate != "" && best >= r.p.SignificanceFloor {
		current, tracked := ratios[r.active]
		switch {
		case r.active == "":
			r.active = candidate
		case !tracked || current < r.p.SignificanceFloor:
			r.active = candidate
		case candidate != r.active && best-current >= r.p.HysteresisFloor:
			r.active = candidate
		}
	}
	if r.active == "" {
		return "", 0
	}
	return r.active, clamp01(ratios[r.active])
}

func (r *Resolver) Active() string { return r.active }

func (r *Resolver) Reset() { r.active = "" }

// dominant returns the id with the highest ratio; ties go to the smaller id.
func dominant(ratios map[string]float64) (string, float64) {
	ids := make([]string, 0, len(ratios))
	for id := range ratios {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var best string
	max := -1.0
	for _, id := range ids {
		if v := ratios[id]; v > max {
			best, max = id, v
		}
	}
	return best, max
}

func clamp01(x float64) float64 {
	if x < 0 || x != x {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

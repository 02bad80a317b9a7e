package scenario

import (
	"fmt"
	"os"
	"sort"
)

var builtins = map[string]func() *Scenario{
	"idle":           idle,
	"pointer-burst":  pointerBurst,
	"scroll-tour":    scrollTour,
	"scroll-to-1000": scrollTo1000,
	"hover-cards":    hoverCards,
	"flicker":        flicker,
	"reduced-motion": reducedMotion,
	"hidden-tab":     hiddenTab,
}

// Builtin returns a fresh copy of a named scenario.
func Builtin(name string) (*Scenario, error) {
	fn, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario: %s", name)
	}
	sc := fn()
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

func List() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve accepts a builtin name or a path to a YAML scenario.
func Resolve(nameOrPath string) (*Scenario, error) {
	if _, ok := builtins[nameOrPath]; ok {
		return Builtin(nameOrPath)
	}
	if _, err := os.Stat(nameOrPath); err == nil {
		return Load(nameOrPath)
	}
	return nil, fmt.Errorf("unknown scenario: %s", nameOrPath)
}

func idle() *Scenario {
	return &Scenario{
		Name:        "idle",
		Description: "no input; energy settles and only keep-alive emits go out",
		Duration:    5,
	}
}

func pointerBurst() *Scenario {
	return &Scenario{
		Name:        "pointer-burst",
		Description: "noisy pointer wandering with a pulse in the middle",
		Duration:    4,
		Jitter:      4,
		Seed:        1,
		Steps:       []Step{{At: 2000, Kind: kindPulse, Intensity: 1}},
		Synthetic: Synthetic{
			Pointer: &PointerNoise{Frequency: 1.5, Amplitude: 0.8, Every: 4, From: 200, Until: 3000},
		},
	}
}

func scrollTour() *Scenario {
	return &Scenario{
		Name:        "scroll-tour",
		Description: "spring scroll through every section and back to the top",
		Duration:    14,
		Synthetic: Synthetic{
			Scroll: &ScrollSpring{
				Max: 4500,
				Targets: []ScrollTarget{
					{At: 0, Offset: 0},
					{At: 1500, Offset: 900},
					{At: 3500, Offset: 1800},
					{At: 5500, Offset: 2700},
					{At: 7500, Offset: 3600},
					{At: 9500, Offset: 4500},
					{At: 11500, Offset: 0},
				},
			},
		},
	}
}

// scrollTo1000 scrolls the page to 1000px and holds, the same check the
// page screenshot scripts make.
func scrollTo1000() *Scenario {
	return &Scenario{
		Name:        "scroll-to-1000",
		Description: "scroll to 1000px, hold, and let the state settle",
		Duration:    4,
		Synthetic: Synthetic{
			Scroll: &ScrollSpring{
				Max:     4500,
				Targets: []ScrollTarget{{At: 0, Offset: 0}, {At: 500, Offset: 1000}},
			},
		},
	}
}

func hoverCards() *Scenario {
	return &Scenario{
		Name:        "hover-cards",
		Description: "hover cards in turn while one is inserted and another removed",
		Duration:    4,
		Steps: []Step{
			{At: 1000, Kind: "mutation", Added: []string{"card-5"}},
			{At: 2000, Kind: "mutation", Removed: []string{"card-2"}},
		},
		Synthetic: Synthetic{
			Hover: &HoverCycle{Elements: []string{"card-1", "card-2", "card-3", "card-5"}, Period: 400},
		},
	}
}

// flicker holds two sections at nearly equal visibility, swapping which
// one leads every frame.
func flicker() *Scenario {
	sc := &Scenario{
		Name:        "flicker",
		Description: "two sections swap a 0.01 lead every frame; the active section must not flip",
		Duration:    2,
	}
	for at := 0.0; at < 2000; at += DefaultDt {
		a, b := 0.50, 0.49
		if int(at/DefaultDt)%2 == 1 {
			a, b = b, a
		}
		sc.Steps = append(sc.Steps,
			Step{At: at, Kind: "visibility", Target: "hero", Ratio: a},
			Step{At: at, Kind: "visibility", Target: "features", Ratio: b},
		)
	}
	return sc
}

func reducedMotion() *Scenario {
	return &Scenario{
		Name:        "reduced-motion",
		Description: "toggle the reduced-motion preference on and off",
		Duration:    3,
		Steps: []Step{
			{At: 1000, Kind: "reduced_motion", On: true},
			{At: 2000, Kind: "reduced_motion", On: false},
		},
		Synthetic: Synthetic{
			Pointer: &PointerNoise{Frequency: 1, Amplitude: 0.5},
		},
	}
}

func hiddenTab() *Scenario {
	return &Scenario{
		Name:        "hidden-tab",
		Description: "background the tab for two seconds",
		Duration:    4,
		Steps: []Step{
			{At: 1000, Kind: "hidden", On: true},
			{At: 3000, Kind: "hidden", On: false},
		},
		Synthetic: Synthetic{
			Pointer: &PointerNoise{Frequency: 1, Amplitude: 0.5},
		},
	}
}

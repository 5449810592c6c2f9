package journey

import "fmt"

// Step is one screen of the wizard. Steps are strictly ordered.
type Step int

const (
	SelectSecurity Step = iota
	SetAmount
	SetPeriod
	Loading
	ShowResults
)

// Steps lists every step in journey order.
var Steps = []Step{SelectSecurity, SetAmount, SetPeriod, Loading, ShowResults}

var stepNames = map[Step]string{
	SelectSecurity: "select-security",
	SetAmount:      "set-amount",
	SetPeriod:      "set-period",
	Loading:        "loading",
	ShowResults:    "show-results",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Valid reports whether s is a member of the step order.
func (s Step) Valid() bool {
	return s >= SelectSecurity && s <= ShowResults
}

// ParseStep maps a step name back to its value.
func ParseStep(name string) (Step, bool) {
	for s, n := range stepNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}

// Direction is the sense of the most recent transition, used to pick the
// enter/exit animation.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

func (s Step) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%v: %w", s, ErrUnknownStep)
	}
	return []byte(s.String()), nil
}

func (s *Step) UnmarshalText(b []byte) error {
	v, ok := ParseStep(string(b))
	if !ok {
		return fmt.Errorf("%q: %w", b, ErrUnknownStep)
	}
	*s = v
	return nil
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

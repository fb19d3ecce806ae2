package leveled

import (
	"fmt"
	"strings"
)

// Step names one value of a computation and how many levels below the
// fresh input level it is expected to sit.
type Step struct {
	Name  string
	Depth int
}

// Schedule is the declared level layout of a fixed computation. It is
// validated against the chain once at startup and consulted at run time to
// check that each named value landed where it should.
type Schedule struct {
	steps []Step
	index map[string]int
}

func NewSchedule(steps ...Step) Schedule {
	s := Schedule{steps: steps, index: make(map[string]int, len(steps))}
	for i, st := range steps {
		s.index[st.Name] = i
	}
	return s
}

// Depth is the deepest step of the schedule.
func (s Schedule) Depth() int {
	depth := 0
	for _, st := range s.steps {
		depth = max(depth, st.Depth)
	}
	return depth
}

// Validate fails with a SetupError when a chain with maxLevel cannot hold
// the schedule.
func (s Schedule) Validate(maxLevel int) error {
	if len(s.index) != len(s.steps) {
		return &SetupError{Reason: "schedule has duplicate step names"}
	}
	if d := s.Depth(); d > maxLevel {
		var deep []string
		for _, st := range s.steps {
			if st.Depth > maxLevel {
				deep = append(deep, st.Name)
			}
		}
		return &SetupError{Reason: fmt.Sprintf("schedule needs depth %d but the chain only has %d levels (steps %s)",
			d, maxLevel, strings.Join(deep, ", "))}
	}
	return nil
}

// Level returns the level step name should reach when the input starts at
// top.
func (s Schedule) Level(name string, top int) (int, error) {
	i, ok := s.index[name]
	if !ok {
		return 0, fmt.Errorf("schedule: unknown step %q", name)
	}
	lvl := top - s.steps[i].Depth
	if lvl < 0 {
		return 0, &DepthExhaustedError{Op: name, Level: top, Required: s.steps[i].Depth}
	}
	return lvl, nil
}

// Check verifies that t sits at the level step name prescribes.
func (s Schedule) Check(name string, t Tagged, top int) error {
	want, err := s.Level(name, top)
	if err != nil {
		return err
	}
	if t.level != want {
		return &AlignmentInvariantError{
			Op: name, LeftLevel: t.level, RightLevel: want,
			LeftScale: t.scale.Float64(), RightScale: t.scale.Float64(),
			Detail: "value off its scheduled level",
		}
	}
	return nil
}

package leveled

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func testSchedule() Schedule {
	return NewSchedule(
		Step{Name: "x2", Depth: 1},
		Step{Name: "x4", Depth: 2},
		Step{Name: "out", Depth: 3},
	)
}

func TestScheduleValidate(t *testing.T) {
	s := testSchedule()
	require.Equal(t, 3, s.Depth())
	require.NoError(t, s.Validate(3))
	require.NoError(t, s.Validate(5))

	err := s.Validate(2)
	require.ErrorIs(t, err, ErrSetup)
	var setupErr *SetupError
	require.True(t, errors.As(err, &setupErr))
	require.Contains(t, setupErr.Reason, "out")

	dup := NewSchedule(Step{Name: "a", Depth: 1}, Step{Name: "a", Depth: 2})
	require.ErrorIs(t, dup.Validate(5), ErrSetup)
}

func TestScheduleLevels(t *testing.T) {
	s := testSchedule()

	lvl, err := s.Level("x4", 5)
	require.NoError(t, err)
	require.Equal(t, 3, lvl)

	_, err = s.Level("out", 2)
	require.ErrorIs(t, err, ErrDepthExhausted)

	_, err = s.Level("nope", 5)
	require.Error(t, err)
}

func TestScheduleCheck(t *testing.T) {
	p := newTestPlanner(t, TestConfig())
	s := testSchedule()

	x, err := p.Encrypt(Scalar(1))
	require.NoError(t, err)
	x2, err := p.Square(x)
	require.NoError(t, err)

	require.NoError(t, s.Check("x2", x2, p.MaxLevel()))
	require.ErrorIs(t, s.Check("x4", x2, p.MaxLevel()), ErrAlignment)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	require.Equal(t, 5, DefaultConfig().MaxLevel())

	cases := map[string]func(c *Config){
		"ring too small":     func(c *Config) { c.LogN = 8 },
		"single modulus":     func(c *Config) { c.LogQ = []int{60} },
		"no special prime":   func(c *Config) { c.LogP = nil },
		"scale too large":    func(c *Config) { c.LogDefaultScale = 60 },
		"modulus too small":  func(c *Config) { c.LogQ = []int{60, 40, 30, 40} },
		"scale below primes": func(c *Config) { c.LogDefaultScale = 35 },
		"30-bit scale":       func(c *Config) { c.LogDefaultScale = 30 },
		"bad rotation":       func(c *Config) { c.Rotations = []int{0} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := TestConfig()
			mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrSetup)
			_, err := NewHEContext(cfg)
			require.ErrorIs(t, err, ErrSetup)
		})
	}
}

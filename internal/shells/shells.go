// Package shells partitions a radius-bounded region into equal-volume
// spherical bands for balanced scan workloads.
//
// Each shell (r_i, r_{i+1}) encloses the same volume as the sphere of the
// initial radius, so under a uniform-density assumption every shell holds
// roughly the same number of systems.
package shells

import (
	"fmt"
	"math"
)

// Shell is an annular band between two radii, lower-inclusive and
// upper-exclusive for assignment purposes.
type Shell struct {
	Inner float64
	Outer float64
}

// Sequence lazily generates equal-volume shells outward from the origin.
// The sequence is unbounded; callers take shells while Inner is below
// their maximum radius. Reset restarts it from the innermost shell.
type Sequence struct {
	initial float64
	r0, r1  float64
	started bool
}

// NewSequence creates a shell sequence with the given initial radius.
func NewSequence(initialRadius float64) (*Sequence, error) {
	if initialRadius <= 0 {
		return nil, fmt.Errorf("initial radius must be positive, got %v", initialRadius)
	}
	return &Sequence{initial: initialRadius}, nil
}

// Next returns the next shell. The first call yields (0, r1); each later
// shell satisfies outer³ − inner³ = r1³.
func (s *Sequence) Next() Shell {
	if !s.started {
		s.started = true
		s.r0 = 0
		s.r1 = s.initial
		return Shell{Inner: 0, Outer: s.initial}
	}

	r2 := math.Cbrt(2*s.r1*s.r1*s.r1 - s.r0*s.r0*s.r0)
	sh := Shell{Inner: s.r1, Outer: r2}
	s.r0 = s.r1
	s.r1 = r2
	return sh
}

// Reset restarts the sequence from the innermost shell.
func (s *Sequence) Reset() {
	s.started = false
}

// Plan materializes shells until a shell's lower bound reaches maxRadius.
func Plan(initialRadius, maxRadius float64) ([]Shell, error) {
	seq, err := NewSequence(initialRadius)
	if err != nil {
		return nil, err
	}

	var out []Shell
	for {
		sh := seq.Next()
		if sh.Inner >= maxRadius {
			return out, nil
		}
		out = append(out, sh)
	}
}

// Index returns the shell holding a point at the given distance.
// Assignment is lower-inclusive, upper-exclusive: shell i holds d when
// r_i <= d < r_{i+1}. Returns false when d falls outside every shell.
func Index(plan []Shell, distance float64) (int, bool) {
	for i, sh := range plan {
		if sh.Inner <= distance && distance < sh.Outer {
			return i, true
		}
	}
	return 0, false
}

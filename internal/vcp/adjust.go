package vcp

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode says how a ValueSpec is applied to the current reading.
type Mode int

const (
	Absolute Mode = iota
	Increase
	Decrease
)

func (m Mode) String() string {
	switch m {
	case Absolute:
		return "absolute"
	case Increase:
		return "increase"
	case Decrease:
		return "decrease"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ValueSpec is a requested new value: an absolute number ("40"), or a delta
// relative to the current value marked by a trailing sign ("5+", "5-").
type ValueSpec struct {
	Mode      Mode
	Magnitude uint16
}

// ParseValueSpec parses s. Magnitudes must fit in 16 bits.
func ParseValueSpec(s string) (ValueSpec, error) {
	spec := ValueSpec{Mode: Absolute}
	num := s
	switch {
	case strings.HasSuffix(s, "+"):
		spec.Mode = Increase
		num = strings.TrimRight(s, "+-")
	case strings.HasSuffix(s, "-"):
		spec.Mode = Decrease
		num = strings.TrimRight(s, "+-")
	}
	n, err := strconv.ParseUint(num, 10, 16)
	if err != nil {
		return ValueSpec{}, fmt.Errorf("%w %q: %w", ErrInvalidValue, s, err)
	}
	spec.Magnitude = uint16(n)
	return spec, nil
}

func (s ValueSpec) String() string {
	switch s.Mode {
	case Increase:
		return strconv.FormatUint(uint64(s.Magnitude), 10) + "+"
	case Decrease:
		return strconv.FormatUint(uint64(s.Magnitude), 10) + "-"
	default:
		return strconv.FormatUint(uint64(s.Magnitude), 10)
	}
}

// Adjust computes the value to write for spec given the current reading.
// The result never exceeds r.Max and never wraps below zero.
func Adjust(r Reading, spec ValueSpec) uint16 {
	switch spec.Mode {
	case Decrease:
		if spec.Magnitude >= r.Value {
			return 0
		}
		return r.Value - spec.Magnitude
	case Increase:
		sum := uint32(r.Value) + uint32(spec.Magnitude)
		if sum > uint32(r.Max) {
			return r.Max
		}
		return uint16(sum)
	default:
		if spec.Magnitude > r.Max {
			return r.Max
		}
		return spec.Magnitude
	}
}

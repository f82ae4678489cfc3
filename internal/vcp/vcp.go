// Package vcp models MCCS Virtual Control Panel features: feature codes,
// readings reported by a display and the user-facing value specs that
// describe how a reading should change.
package vcp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidCode  = errors.New("vcp: invalid feature code")
	ErrInvalidValue = errors.New("vcp: invalid feature value")
)

// Code identifies a VCP feature (0x10 is luminance).
type Code uint8

const Brightness Code = 0x10

func (c Code) String() string {
	return fmt.Sprintf("0x%02X", uint8(c))
}

// ParseCode accepts decimal ("16"), 0x-prefixed hex ("0x10") and
// h/H-suffixed hex ("10h") notations.
func ParseCode(s string) (Code, error) {
	var (
		n   uint64
		err error
	)
	switch {
	case strings.HasPrefix(s, "0x"):
		n, err = strconv.ParseUint(s[2:], 16, 8)
	case strings.HasSuffix(s, "h") || strings.HasSuffix(s, "H"):
		n, err = strconv.ParseUint(s[:len(s)-1], 16, 8)
	default:
		n, err = strconv.ParseUint(s, 10, 8)
	}
	if err != nil {
		return 0, fmt.Errorf("%w %q: %w", ErrInvalidCode, s, err)
	}
	return Code(n), nil
}

// Reading is a feature's current and maximum value as reported by the display.
type Reading struct {
	Value uint16
	Max   uint16
}

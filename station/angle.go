package station

import (
	"errors"
	"strconv"
	"strings"
)

const (
	MinAngle = 0
	MaxAngle = 90
)

// Clamp saturates n into [MinAngle, MaxAngle].
func Clamp(n int) int {
	if n < MinAngle {
		return MinAngle
	}
	if n > MaxAngle {
		return MaxAngle
	}
	return n
}

// ParseAngle parses a decimal integer and clamps it. Integers too large for
// int saturate as well. Digit separators ("1_0") are not accepted.
func ParseAngle(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	n, err := strconv.Atoi(s)
	if err != nil {
		var ne *strconv.NumError
		if !errors.As(err, &ne) || ne.Err != strconv.ErrRange {
			return 0, &ValidationError{Input: raw, Err: err}
		}
		// Atoi saturates n on ErrRange.
	}
	return Clamp(n), nil
}

// FormatAngle encodes the wire command for a (clamped) angle: "<angle>\n".
func FormatAngle(angle int) []byte {
	return append(strconv.AppendInt(nil, int64(Clamp(angle)), 10), '\n')
}

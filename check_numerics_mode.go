package gudablas

import (
	"fmt"
	"strconv"
	"strings"
)

// CheckNumericsMode is the bit set selecting what a check-numerics pass
// does with its findings. Modes combine.
type CheckNumericsMode int

const (
	// CheckNumericsNone disables checking.
	CheckNumericsNone CheckNumericsMode = 0
	// CheckNumericsInfo logs the NaN, zero and Inf findings of every operand.
	CheckNumericsInfo CheckNumericsMode = 1 << 0
	// CheckNumericsWarn logs a warning for operands holding NaN or Inf.
	CheckNumericsWarn CheckNumericsMode = 1 << 1
	// CheckNumericsFail makes the call fail for operands holding NaN or Inf.
	CheckNumericsFail CheckNumericsMode = 1 << 2

	checkNumericsAll = CheckNumericsInfo | CheckNumericsWarn | CheckNumericsFail
)

// Has reports whether every bit of flag is set in m.
func (m CheckNumericsMode) Has(flag CheckNumericsMode) bool {
	return flag != 0 && m&flag == flag
}

// Enabled reports whether any check is requested.
func (m CheckNumericsMode) Enabled() bool {
	return m&checkNumericsAll != 0
}

func (m CheckNumericsMode) String() string {
	if m == CheckNumericsNone {
		return "none"
	}
	var parts []string
	if m.Has(CheckNumericsInfo) {
		parts = append(parts, "info")
	}
	if m.Has(CheckNumericsWarn) {
		parts = append(parts, "warn")
	}
	if m.Has(CheckNumericsFail) {
		parts = append(parts, "fail")
	}
	if rest := m &^ checkNumericsAll; rest != 0 {
		parts = append(parts, strconv.Itoa(int(rest)))
	}
	return strings.Join(parts, "|")
}

// ParseCheckNumericsMode accepts the integer bit set ("4", "6") or names
// joined by '|' or ',' ("fail", "info|warn", "none").
func ParseCheckNumericsMode(s string) (CheckNumericsMode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CheckNumericsNone, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		m := CheckNumericsMode(n)
		if n < 0 || m&^checkNumericsAll != 0 {
			return 0, NewInvalidArgError("ParseCheckNumericsMode", fmt.Sprintf("unknown mode bits in %d", n))
		}
		return m, nil
	}

	var m CheckNumericsMode
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "none", "no_check", "off":
		case "info":
			m |= CheckNumericsInfo
		case "warn", "warning":
			m |= CheckNumericsWarn
		case "fail":
			m |= CheckNumericsFail
		default:
			return 0, NewInvalidArgError("ParseCheckNumericsMode", fmt.Sprintf("unknown mode %q", part))
		}
	}
	return m, nil
}

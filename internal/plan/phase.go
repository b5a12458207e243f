package plan

import (
	"fmt"
	"strings"
)

// Phase orders plans that share a scheduled time.
type Phase uint8

const (
	First Phase = iota
	Normal
	Last
)

func (p Phase) String() string {
	switch p {
	case First:
		return "first"
	case Normal:
		return "normal"
	case Last:
		return "last"
	default:
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
}

// ParsePhase parses a phase name, case-insensitively. The empty string is
// Normal.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "first":
		return First, nil
	case "", "normal":
		return Normal, nil
	case "last":
		return Last, nil
	default:
		return Normal, fmt.Errorf("unknown phase %q (want first, normal or last)", s)
	}
}

package compliance

import (
	"fmt"
	"strings"
)

// ComplianceMode selects how aggressively reconstruction rejects damage.
//
// Strict mode prefers explicit failure over silent acceptance.
// Permissive mode attempts to produce content while surfacing skipped
// witness slots and unverified checksums explicitly.
type ComplianceMode int

const (
	Permissive ComplianceMode = iota
	Strict
)

func (m ComplianceMode) String() string {
	switch m {
	case Permissive:
		return "permissive"
	case Strict:
		return "strict"
	default:
		return fmt.Sprintf("ComplianceMode(%d)", int(m))
	}
}

// Parse accepts "permissive" (or "lenient") and "strict".
func Parse(s string) (ComplianceMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "permissive", "lenient":
		return Permissive, nil
	case "strict":
		return Strict, nil
	default:
		return Permissive, fmt.Errorf("compliance: unknown mode %q", s)
	}
}

func (m ComplianceMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *ComplianceMode) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

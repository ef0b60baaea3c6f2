package ckbfs

import (
	"fmt"
	"strings"
)

// Version selects one of the three on-chain cell record layouts.
type Version uint8

const (
	V1 Version = 1
	V2 Version = 2
	V3 Version = 3
)

// DefaultProbeOrder returns the version fallback order used when the layout
// of a cell record is not known in advance: newest first. Each call returns a
// fresh slice.
func DefaultProbeOrder() []Version { return []Version{V3, V2, V1} }

func (v Version) Valid() bool { return v >= V1 && v <= V3 }

func (v Version) String() string {
	if !v.Valid() {
		return fmt.Sprintf("Version(%d)", uint8(v))
	}
	return fmt.Sprintf("v%d", uint8(v))
}

// ParseVersion accepts "1", "v1", "V1" and so on.
func ParseVersion(s string) (Version, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "v1":
		return V1, nil
	case "2", "v2":
		return V2, nil
	case "3", "v3":
		return V3, nil
	default:
		return 0, NewError(KindInvalidArgument, "CKBFS-CFG-001", fmt.Sprintf("unknown protocol version %q", s))
	}
}

func (v Version) MarshalText() ([]byte, error) {
	if !v.Valid() {
		return nil, NewError(KindInvalidArgument, "CKBFS-CFG-001", "invalid protocol version")
	}
	return []byte(v.String()), nil
}

func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

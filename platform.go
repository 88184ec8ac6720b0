package modloader

import (
	"fmt"
	"strings"
)

// Platform is a flag set over the games a mod can target.
type Platform uint8

const (
	PlatformNone Platform = 0
	PlatformA    Platform = 1 << 0
	PlatformB    Platform = 1 << 1
	PlatformBoth          = PlatformA | PlatformB
)

// Intersects reports whether the flag set shares a platform with active.
func (p Platform) Intersects(active Platform) bool {
	return p&active != 0
}

func (p Platform) String() string {
	switch p {
	case PlatformNone:
		return "none"
	case PlatformA:
		return "a"
	case PlatformB:
		return "b"
	case PlatformBoth:
		return "both"
	default:
		return fmt.Sprintf("platform(%d)", uint8(p))
	}
}

// MarshalText encodes the platform by name.
func (p Platform) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ParsePlatform resolves a manifest platform tag. Built-in tags are
// none, a, b and both (case-insensitive). aliases maps host specific
// names, typically game titles, onto one of the built-in tags.
// An empty tag targets both platforms.
func ParsePlatform(tag string, aliases map[string]string) (Platform, error) {
	key := strings.ToLower(strings.TrimSpace(tag))
	if key == "" {
		return PlatformBoth, nil
	}
	if p, ok := builtinPlatform(key); ok {
		return p, nil
	}
	for alias, target := range aliases {
		if strings.EqualFold(alias, key) {
			if p, ok := builtinPlatform(strings.ToLower(target)); ok {
				return p, nil
			}
			return PlatformNone, fmt.Errorf("%w: alias %q maps to %q", ErrUnknownPlatform, alias, target)
		}
	}
	return PlatformNone, fmt.Errorf("%w: %q", ErrUnknownPlatform, tag)
}

func builtinPlatform(key string) (Platform, bool) {
	switch key {
	case "none":
		return PlatformNone, true
	case "a", "platforma":
		return PlatformA, true
	case "b", "platformb":
		return PlatformB, true
	case "both":
		return PlatformBoth, true
	}
	return PlatformNone, false
}

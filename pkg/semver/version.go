package semver

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalid is returned when a version or requirement string cannot be parsed.
var ErrInvalid = errors.New("invalid semver")

// Version is a concrete semantic version: major.minor.patch[-pre][+build].
//
// Pre and Build hold the dot-separated identifiers without their leading
// '-' or '+'. The zero value is 0.0.0.
type Version struct {
	Major uint64
	Minor uint64
	Patch uint64
	Pre   string
	Build string
}

// New returns a release version with no prerelease or build metadata.
func New(major, minor, patch uint64) Version {
	return Version{Major: major, Minor: minor, Patch: patch}
}

// ParseVersion parses a strict semantic version. Surrounding whitespace is
// ignored; partial versions such as "1.2" are rejected.
func ParseVersion(s string) (Version, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Version{}, fmt.Errorf("%w: empty version", ErrInvalid)
	}

	rest, build, hasBuild := strings.Cut(raw, "+")
	core, pre, hasPre := strings.Cut(rest, "-")

	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("%w: %q is not major.minor.patch", ErrInvalid, s)
	}

	var v Version
	var err error
	if v.Major, err = parseNumber(parts[0]); err != nil {
		return Version{}, fmt.Errorf("%w: major in %q", err, s)
	}
	if v.Minor, err = parseNumber(parts[1]); err != nil {
		return Version{}, fmt.Errorf("%w: minor in %q", err, s)
	}
	if v.Patch, err = parseNumber(parts[2]); err != nil {
		return Version{}, fmt.Errorf("%w: patch in %q", err, s)
	}

	if hasPre {
		if err := validateIdentifiers(pre, true); err != nil {
			return Version{}, fmt.Errorf("%w: prerelease in %q", err, s)
		}
		v.Pre = pre
	}
	if hasBuild {
		if err := validateIdentifiers(build, false); err != nil {
			return Version{}, fmt.Errorf("%w: build metadata in %q", err, s)
		}
		v.Build = build
	}
	return v, nil
}

// MustParseVersion is like ParseVersion but panics on error.
// Intended for constants and tests.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders the version in canonical form.
func (v Version) String() string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(v.Major, 10))
	b.WriteByte('.')
	b.WriteString(strconv.FormatUint(v.Minor, 10))
	b.WriteByte('.')
	b.WriteString(strconv.FormatUint(v.Patch, 10))
	if v.Pre != "" {
		b.WriteByte('-')
		b.WriteString(v.Pre)
	}
	if v.Build != "" {
		b.WriteByte('+')
		b.WriteString(v.Build)
	}
	return b.String()
}

// IsPrerelease reports whether the version carries prerelease identifiers.
func (v Version) IsPrerelease() bool { return v.Pre != "" }

// SameTriple reports whether v and o share major.minor.patch.
func (v Version) SameTriple(o Version) bool {
	return v.Major == o.Major && v.Minor == o.Minor && v.Patch == o.Patch
}

// Compare returns -1, 0 or +1 depending on whether v sorts before, equal to,
// or after o. Precedence follows semver 2.0; build metadata is compared
// lexically as a final tiebreak so that distinct strings never compare equal.
func (v Version) Compare(o Version) int {
	if c := compareUint(v.Major, o.Major); c != 0 {
		return c
	}
	if c := compareUint(v.Minor, o.Minor); c != 0 {
		return c
	}
	if c := compareUint(v.Patch, o.Patch); c != 0 {
		return c
	}
	if c := comparePre(v.Pre, o.Pre); c != 0 {
		return c
	}
	return strings.Compare(v.Build, o.Build)
}

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// comparePre orders prerelease strings. An empty prerelease sorts after any
// non-empty one.
func comparePre(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	}

	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := compareIdentifier(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return compareUint(uint64(len(as)), uint64(len(bs)))
}

func compareIdentifier(a, b string) int {
	an, aNum := numeric(a)
	bn, bNum := numeric(b)
	switch {
	case aNum && bNum:
		return compareUint(an, bn)
	case aNum:
		return -1
	case bNum:
		return 1
	}
	return strings.Compare(a, b)
}

func numeric(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(s, 10, 64)
	return n, err == nil
}

func parseNumber(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty number", ErrInvalid)
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, fmt.Errorf("%w: leading zero in %q", ErrInvalid, s)
	}
	n, ok := numeric(s)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalid, s)
	}
	return n, nil
}

func validateIdentifiers(s string, pre bool) error {
	if s == "" {
		return fmt.Errorf("%w: empty identifier", ErrInvalid)
	}
	for _, id := range strings.Split(s, ".") {
		if id == "" {
			return fmt.Errorf("%w: empty identifier", ErrInvalid)
		}
		for _, r := range id {
			if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '-') {
				return fmt.Errorf("%w: invalid character %q", ErrInvalid, r)
			}
		}
		if _, isNum := numeric(id); pre && isNum && len(id) > 1 && id[0] == '0' {
			return fmt.Errorf("%w: leading zero in %q", ErrInvalid, id)
		}
	}
	return nil
}

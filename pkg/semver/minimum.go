package semver

import "math"

// MinimumVersion returns the earliest version that could satisfy r.
//
// Each comparator contributes the lower bound of its own window and the
// smallest bound across all comparators wins. This does not intersect the
// comparators of a set, so the result is only a conservative estimate.
// A requirement without comparators yields 0.0.0.
func (r Requirement) MinimumVersion() Version {
	var (
		min   Version
		found bool
	)
	for _, set := range r.Sets {
		for _, c := range set {
			for _, v := range c.candidates() {
				if !found || v.Less(min) {
					min, found = v, true
				}
			}
		}
	}
	return min
}

// MinimumVersion parses s and returns its minimum version. Unparseable input
// yields 0.0.0.
func MinimumVersion(s string) Version {
	r, err := ParseRequirement(s)
	if err != nil {
		return Version{}
	}
	return r.MinimumVersion()
}

func (c Comparator) candidates() []Version {
	major := c.Major
	minor, patch := deref(c.Minor), deref(c.Patch)
	base := New(major, minor, patch)

	switch c.Op {
	case OpExact, OpGreaterEq:
		return []Version{base}
	case OpGreater:
		switch {
		case c.Minor == nil:
			return []Version{New(inc(major), 0, 0)}
		case c.Patch == nil:
			return []Version{New(major, inc(minor), 0)}
		}
		return []Version{New(major, minor, inc(patch))}
	case OpLess:
		return []Version{base}
	case OpLessEq:
		switch {
		case c.Minor == nil:
			return []Version{New(inc(major), 0, 0)}
		case c.Patch == nil:
			return []Version{New(major, inc(minor), 0)}
		}
		return []Version{base}
	case OpTilde:
		switch {
		case c.Minor == nil:
			return []Version{New(major, 0, 0), New(inc(major), 0, 0)}
		case c.Patch == nil:
			return []Version{New(major, minor, 0), New(major, inc(minor), 0)}
		}
		return []Version{base, New(major, inc(minor), 0)}
	case OpCaret:
		switch {
		case major > 0:
			return []Version{base, New(inc(major), 0, 0)}
		case c.Minor == nil:
			return []Version{New(0, 0, 0), New(1, 0, 0)}
		case minor > 0:
			return []Version{base, New(0, inc(minor), 0)}
		case c.Patch != nil:
			return []Version{base}
		}
		return []Version{New(0, 0, 0)}
	case OpWildcard:
		if c.Minor != nil {
			return []Version{New(major, minor, 0), New(major, inc(minor), 0)}
		}
		return []Version{New(major, 0, 0), New(inc(major), 0, 0)}
	}
	return []Version{base}
}

// inc returns n+1, saturating at the largest component value.
func inc(n uint64) uint64 {
	if n == math.MaxUint64 {
		return n
	}
	return n + 1
}

func deref(p *uint64) uint64 {
	if p == nil {
		return 0
	}
	return *p
}

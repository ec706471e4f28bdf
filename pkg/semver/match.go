package semver

// Matches reports whether v satisfies any comparator set of r.
//
// Prerelease versions only match a set that contains a comparator naming the
// same major.minor.patch with a prerelease of its own.
func (r Requirement) Matches(v Version) bool {
	for _, set := range r.Sets {
		if set.Matches(v) {
			return true
		}
	}
	return false
}

// Matches reports whether v satisfies every comparator in s.
func (s ComparatorSet) Matches(v Version) bool {
	for _, c := range s {
		if !c.Matches(v) {
			return false
		}
	}
	if v.Pre == "" {
		return true
	}
	for _, c := range s {
		if c.allowsPrerelease(v) {
			return true
		}
	}
	return false
}

// Matches reports whether v satisfies c alone, ignoring the prerelease
// visibility rule applied by ComparatorSet.
func (c Comparator) Matches(v Version) bool {
	switch c.Op {
	case OpExact, OpWildcard:
		return c.matchesExact(v)
	case OpGreater:
		return c.matchesGreater(v)
	case OpGreaterEq:
		return c.matchesExact(v) || c.matchesGreater(v)
	case OpLess:
		return c.matchesLess(v)
	case OpLessEq:
		return c.matchesExact(v) || c.matchesLess(v)
	case OpTilde:
		return c.matchesTilde(v)
	case OpCaret:
		return c.matchesCaret(v)
	}
	return false
}

func (c Comparator) allowsPrerelease(v Version) bool {
	return c.Major == v.Major &&
		c.Minor != nil && *c.Minor == v.Minor &&
		c.Patch != nil && *c.Patch == v.Patch &&
		c.Pre != ""
}

func (c Comparator) matchesExact(v Version) bool {
	if v.Major != c.Major {
		return false
	}
	if c.Minor != nil && v.Minor != *c.Minor {
		return false
	}
	if c.Patch != nil && v.Patch != *c.Patch {
		return false
	}
	return v.Pre == c.Pre
}

func (c Comparator) matchesGreater(v Version) bool {
	if v.Major != c.Major {
		return v.Major > c.Major
	}
	if c.Minor == nil {
		return false
	}
	if v.Minor != *c.Minor {
		return v.Minor > *c.Minor
	}
	if c.Patch == nil {
		return false
	}
	if v.Patch != *c.Patch {
		return v.Patch > *c.Patch
	}
	return comparePre(v.Pre, c.Pre) > 0
}

func (c Comparator) matchesLess(v Version) bool {
	if v.Major != c.Major {
		return v.Major < c.Major
	}
	if c.Minor == nil {
		return false
	}
	if v.Minor != *c.Minor {
		return v.Minor < *c.Minor
	}
	if c.Patch == nil {
		return false
	}
	if v.Patch != *c.Patch {
		return v.Patch < *c.Patch
	}
	return comparePre(v.Pre, c.Pre) < 0
}

func (c Comparator) matchesTilde(v Version) bool {
	if v.Major != c.Major {
		return false
	}
	if c.Minor != nil && v.Minor != *c.Minor {
		return false
	}
	if c.Patch != nil && v.Patch != *c.Patch {
		return v.Patch > *c.Patch
	}
	return comparePre(v.Pre, c.Pre) >= 0
}

func (c Comparator) matchesCaret(v Version) bool {
	if v.Major != c.Major {
		return false
	}
	if c.Minor == nil {
		return true
	}
	minor := *c.Minor
	if c.Patch == nil {
		if c.Major > 0 {
			return v.Minor >= minor
		}
		return v.Minor == minor
	}
	patch := *c.Patch

	switch {
	case c.Major > 0:
		if v.Minor != minor {
			return v.Minor > minor
		}
		if v.Patch != patch {
			return v.Patch > patch
		}
	case minor > 0:
		if v.Minor != minor {
			return false
		}
		if v.Patch != patch {
			return v.Patch > patch
		}
	default:
		if v.Minor != minor || v.Patch != patch {
			return false
		}
	}
	return comparePre(v.Pre, c.Pre) >= 0
}

package versioning

import (
	"fmt"
	"sort"
	"strings"

	"github.com/matzehuels/deputy/pkg/semver"
)

// Versioned is implemented by every registry record that carries a version.
type Versioned interface {
	// RawVersion returns the version string exactly as the registry sent it.
	RawVersion() string
	// Deprecated reports whether the record is yanked, deprecated or otherwise
	// unfit to be suggested.
	Deprecated() bool
}

// String adapts a plain version string to Versioned.
type String string

func (s String) RawVersion() string { return string(s) }
func (s String) Deprecated() bool   { return false }

// Strings converts raw version strings into Versioned values.
func Strings(vs ...string) []String {
	out := make([]String, len(vs))
	for i, v := range vs {
		out[i] = String(v)
	}
	return out
}

// LatestVersion is the newest candidate found for a given version.
type LatestVersion[T Versioned] struct {
	ThisVersion semver.Version
	ItemVersion semver.Version
	Item        T

	// IsSemverCompatible is true when the item satisfies the requirement
	// implied by ThisVersion (or equals it exactly).
	IsSemverCompatible bool
	// IsExactlyCompatible is true when the item is ThisVersion.
	IsExactlyCompatible bool
}

// LatestOptions tunes ExtractLatestWith.
type LatestOptions[T Versioned] struct {
	// KeepDeprecatedExact keeps a deprecated candidate when it is exactly the
	// version being inspected, so diagnostics can still report on it.
	KeepDeprecatedExact bool

	// Filter, when set, drops items for which it returns false before any
	// other rule is applied.
	Filter func(item T) bool
}

// ExtractLatest returns the newest eligible candidate for this.
//
// this is usually a concrete version; a requirement such as "^1.2" is
// accepted too and resolved through its minimum version. The boolean is
// false when this cannot be parsed or no candidate survives filtering.
func ExtractLatest[T Versioned](this string, items []T) (LatestVersion[T], bool) {
	return ExtractLatestWith(this, items, LatestOptions[T]{})
}

// ExtractLatestWith is ExtractLatest with options.
func ExtractLatestWith[T Versioned](this string, items []T, opts LatestOptions[T]) (LatestVersion[T], bool) {
	thisVersion, req, ok := resolveThis(this)
	if !ok {
		return LatestVersion[T]{}, false
	}
	thisCanonical := thisVersion.String()

	candidates := make([]LatestVersion[T], 0, len(items))
	for _, item := range items {
		if opts.Filter != nil && !opts.Filter(item) {
			continue
		}
		v, err := semver.ParseVersion(item.RawVersion())
		if err != nil {
			continue
		}
		exact := v.String() == thisCanonical
		if item.Deprecated() && !(opts.KeepDeprecatedExact && exact) {
			continue
		}
		if v.IsPrerelease() && !v.SameTriple(thisVersion) {
			continue
		}
		candidates = append(candidates, LatestVersion[T]{
			ThisVersion:         thisVersion,
			ItemVersion:         v,
			Item:                item,
			IsExactlyCompatible: exact,
			IsSemverCompatible:  exact || req.Matches(v),
		})
	}
	if len(candidates) == 0 {
		return LatestVersion[T]{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ItemVersion.Less(candidates[j].ItemVersion)
	})
	return candidates[len(candidates)-1], true
}

// resolveThis parses this as a version, falling back to a requirement.
// A concrete version is treated as its bare (caret) requirement.
func resolveThis(this string) (semver.Version, semver.Requirement, bool) {
	if v, err := semver.ParseVersion(this); err == nil {
		req, err := semver.ParseRequirement(v.String())
		if err != nil {
			return semver.Version{}, semver.Requirement{}, false
		}
		return v, req, true
	}
	req, err := semver.ParseRequirement(this)
	if err != nil {
		return semver.Version{}, semver.Requirement{}, false
	}
	return req.MinimumVersion(), req, true
}

// CompletionVersion is a ranked completion candidate.
// ThisVersion and ItemVersion are nil when the raw text does not parse.
type CompletionVersion[T Versioned] struct {
	ThisVersion    *semver.Version
	ThisVersionRaw string
	ItemVersion    *semver.Version
	ItemVersionRaw string
	Item           T
}

// TrimSpecifiers strips leading requirement operators and whitespace.
func TrimSpecifiers(s string) string {
	return strings.TrimLeft(s, "^~=><* \t")
}

// ExtractCompletions ranks items as completions for the partially typed
// version text. Deprecated items are dropped, the rest are filtered by raw
// string prefix and sorted newest first. Unparseable versions are kept and
// ordered by their raw text.
func ExtractCompletions[T Versioned](typed string, items []T) []CompletionVersion[T] {
	return ExtractCompletionsFiltered(typed, items, nil)
}

// ExtractCompletionsFiltered is ExtractCompletions with an extra predicate;
// a nil keep accepts every item.
func ExtractCompletionsFiltered[T Versioned](typed string, items []T, keep func(T) bool) []CompletionVersion[T] {
	prefix := TrimSpecifiers(typed)

	var thisVersion *semver.Version
	if v, err := semver.ParseVersion(prefix); err == nil {
		thisVersion = &v
	}

	out := make([]CompletionVersion[T], 0, len(items))
	for _, item := range items {
		if item.Deprecated() || (keep != nil && !keep(item)) {
			continue
		}
		raw := item.RawVersion()
		if prefix != "" && !strings.HasPrefix(raw, prefix) {
			continue
		}
		c := CompletionVersion[T]{
			ThisVersion:    thisVersion,
			ThisVersionRaw: prefix,
			ItemVersionRaw: raw,
			Item:           item,
		}
		if v, err := semver.ParseVersion(raw); err == nil {
			c.ItemVersion = &v
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ItemVersion != nil && b.ItemVersion != nil {
			return b.ItemVersion.Less(*a.ItemVersion)
		}
		return a.ItemVersionRaw > b.ItemVersionRaw
	})
	return out
}

// SortText returns a zero-padded sort key for position i of n, so that
// lexical ordering in a client matches the ranked order.
func SortText(i, n int) string {
	width := len(fmt.Sprint(n))
	return fmt.Sprintf("%0*d", width, i)
}

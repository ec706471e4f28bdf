package crates

import (
	"encoding/json"
	"sort"
	"strings"
)

// IndexMetadata is one published version of a crate, as listed in the
// sparse index. It implements versioning.Versioned.
type IndexMetadata struct {
	Name         string
	Version      string
	Dependencies []IndexDependency
	Features     map[string][]string
	Features2    map[string][]string
	Yanked       bool
}

// IndexDependency is a dependency entry of an index line.
type IndexDependency struct {
	Name               string   `json:"name"`
	VersionRequirement string   `json:"req"`
	Features           []string `json:"features"`
	Optional           bool     `json:"optional"`
	DefaultFeatures    bool     `json:"default_features"`
	Target             string   `json:"target,omitempty"`
	Kind               string   `json:"kind,omitempty"`
}

// RawVersion returns the published version string.
func (m IndexMetadata) RawVersion() string { return m.Version }

// Deprecated reports whether the version was yanked.
func (m IndexMetadata) Deprecated() bool { return m.Yanked }

// indexLine accepts both the short field names used by the sparse index
// ("vers", "deps", "feats") and their long forms.
type indexLine struct {
	Name         string              `json:"name"`
	Vers         string              `json:"vers"`
	Version      string              `json:"version"`
	Deps         []IndexDependency   `json:"deps"`
	Dependencies []IndexDependency   `json:"dependencies"`
	Features     map[string][]string `json:"features"`
	Feats        map[string][]string `json:"feats"`
	Features2    map[string][]string `json:"features2"`
	Feats2       map[string][]string `json:"feats2"`
	Yanked       bool                `json:"yanked"`
}

// UnmarshalJSON decodes a single index line.
func (m *IndexMetadata) UnmarshalJSON(data []byte) error {
	var l indexLine
	if err := json.Unmarshal(data, &l); err != nil {
		return err
	}
	*m = IndexMetadata{
		Name:         l.Name,
		Version:      firstNonEmpty(l.Vers, l.Version),
		Dependencies: l.Deps,
		Features:     l.Features,
		Features2:    l.Features2,
		Yanked:       l.Yanked,
	}
	if m.Dependencies == nil {
		m.Dependencies = l.Dependencies
	}
	if m.Features == nil {
		m.Features = l.Feats
	}
	if m.Features2 == nil {
		m.Features2 = l.Feats2
	}
	return nil
}

// AllFeatures returns the sorted, de-duplicated feature names of the
// version, including the implicit features created by optional
// dependencies that no feature enables through "dep:".
func (m IndexMetadata) AllFeatures() []string {
	seen := make(map[string]struct{})
	for _, dep := range m.Dependencies {
		if dep.Optional && !mentionsDep(m.Features, dep.Name) && !mentionsDep(m.Features2, dep.Name) {
			seen[dep.Name] = struct{}{}
		}
	}
	for name := range m.Features {
		seen[name] = struct{}{}
	}
	for name := range m.Features2 {
		seen[name] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func mentionsDep(features map[string][]string, dep string) bool {
	for _, enables := range features {
		for _, spec := range enables {
			if name, ok := strings.CutPrefix(spec, "dep:"); ok && name == dep {
				return true
			}
		}
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// CrateData is crate-level information from the crates.io API.
type CrateData struct {
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
	Documentation   *string `json:"documentation"`
	Repository      *string `json:"repository"`
	Homepage        *string `json:"homepage"`
	Downloads       uint64  `json:"downloads"`
	RecentDownloads uint64  `json:"recent_downloads"`
	MaxVersion      string  `json:"max_version,omitempty"`
}

type crateResponse struct {
	Crate CrateData `json:"crate"`
}

type searchResponse struct {
	Crates []CrateData `json:"crates"`
}

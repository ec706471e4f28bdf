package npm

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/matzehuels/deputy/pkg/semver"
)

// RegistryMetadata is the packument of an npm package: the latest manifest
// fields at the top level plus every published version.
type RegistryMetadata struct {
	VersionMetadata
	DistTags   map[string]string          `json:"dist-tags"`
	Timestamps map[string]string          `json:"time"`
	Versions   map[string]VersionMetadata `json:"versions"`
}

// VersionMetadata is a single published version. It implements
// versioning.Versioned.
type VersionMetadata struct {
	Name        string      `json:"name"`
	Version     string      `json:"version"`
	Description string      `json:"description,omitempty"`
	License     *License    `json:"license,omitempty"`
	Homepage    string      `json:"homepage,omitempty"`
	Repository  *Repository `json:"repository,omitempty"`
	Author      *Human      `json:"author,omitempty"`
	Maintainers []Human     `json:"maintainers,omitempty"`

	// DeprecationMessage is non-empty for deprecated versions.
	DeprecationMessage string `json:"deprecated,omitempty"`

	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// RawVersion returns the published version string.
func (v VersionMetadata) RawVersion() string { return v.Version }

// Deprecated reports whether the version carries a deprecation message.
func (v VersionMetadata) Deprecated() bool { return v.DeprecationMessage != "" }

// VersionList returns the published versions ordered newest first.
// Versions that are not valid semver sort last, by raw text.
func (m RegistryMetadata) VersionList() []VersionMetadata {
	out := make([]VersionMetadata, 0, len(m.Versions))
	for _, v := range m.Versions {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		a, aerr := semver.ParseVersion(out[i].Version)
		b, berr := semver.ParseVersion(out[j].Version)
		switch {
		case aerr == nil && berr == nil:
			return b.Less(a)
		case aerr == nil:
			return true
		case berr == nil:
			return false
		}
		return out[i].Version > out[j].Version
	})
	return out
}

// Latest returns the version tagged "latest", if present.
func (m RegistryMetadata) Latest() (VersionMetadata, bool) {
	tag, ok := m.DistTags["latest"]
	if !ok {
		return VersionMetadata{}, false
	}
	v, ok := m.Versions[tag]
	return v, ok
}

// License is either an SPDX string or a {type, url} object.
type License struct {
	Kind string `json:"type"`
	URL  string `json:"url,omitempty"`
}

// UnmarshalJSON accepts both the string and the object form.
func (l *License) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = License{Kind: s}
		return nil
	}
	type plain License
	return json.Unmarshal(data, (*plain)(l))
}

// Human is a package author or maintainer.
type Human struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// UnmarshalJSON accepts "Name <email>" strings and {name, email} objects.
func (h *Human) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*h = parseHuman(s)
		return nil
	}
	type plain Human
	return json.Unmarshal(data, (*plain)(h))
}

func parseHuman(s string) Human {
	name, rest, ok := strings.Cut(s, "<")
	if !ok {
		return Human{Name: strings.TrimSpace(s)}
	}
	email, _, _ := strings.Cut(rest, ">")
	return Human{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email)}
}

// Repository is either a shorthand string ("github:user/repo") or a
// {type, url, directory} object.
type Repository struct {
	Kind      string `json:"type,omitempty"`
	Raw       string `json:"url,omitempty"`
	Directory string `json:"directory,omitempty"`

	shorthand bool
}

// UnmarshalJSON accepts both the string and the object form.
func (r *Repository) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = Repository{Raw: s, shorthand: true}
		return nil
	}
	type plain Repository
	return json.Unmarshal(data, (*plain)(r))
}

var shorthandHosts = []struct {
	prefix, base, suffix string
}{
	{"github:", "https://github.com/", ""},
	{"gitlab:", "https://gitlab.com/", ""},
	{"bitbucket:", "https://bitbucket.org/", "/overview"},
}

// URL returns a browsable repository URL. Object forms return their url
// field; shorthand strings expand the github:, gitlab: and bitbucket:
// prefixes. Any other shorthand yields "".
func (r *Repository) URL() string {
	if r == nil {
		return ""
	}
	if !r.shorthand {
		return r.Raw
	}
	s := strings.TrimSpace(r.Raw)
	for _, h := range shorthandHosts {
		rest, ok := strings.CutPrefix(s, h.prefix)
		if !ok {
			continue
		}
		user, repo, ok := strings.Cut(rest, "/")
		if !ok {
			return ""
		}
		return h.base + user + "/" + repo + h.suffix
	}
	return ""
}

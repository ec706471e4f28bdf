package wally

import (
	"encoding/json"
	"fmt"
	"strings"
)

// IndexConfig is the config.json at the root of an index repository.
type IndexConfig struct {
	APIURL             string   `json:"api"`
	FallbackRegistries []string `json:"fallback_registries"`
}

// Realm is the environment a Wally package runs in.
type Realm string

const (
	RealmDev    Realm = "dev"
	RealmServer Realm = "server"
	RealmShared Realm = "shared"
)

// UnmarshalJSON accepts the lowercase realm names and rejects anything else.
func (r *Realm) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch realm := Realm(strings.ToLower(s)); realm {
	case RealmDev, RealmServer, RealmShared:
		*r = realm
		return nil
	default:
		return fmt.Errorf("unknown wally realm %q", s)
	}
}

// Name returns the realm name as written in wally.toml.
func (r Realm) Name() string { return string(r) }

// SectionName returns the manifest section that holds dependencies of this
// realm.
func (r Realm) SectionName() string {
	switch r {
	case RealmDev:
		return "dev-dependencies"
	case RealmServer:
		return "server-dependencies"
	default:
		return "dependencies"
	}
}

// SuggestedRealm returns the section a package of realm r should move to
// when it is declared in current. Only server packages outside the server
// section get a suggestion.
func (r Realm) SuggestedRealm(current Realm) (Realm, bool) {
	if r == RealmServer && current != RealmServer {
		return RealmServer, true
	}
	return "", false
}

// MetadataPackage is the [package] table of a published package.
type MetadataPackage struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Registry    string   `json:"registry"`
	Realm       Realm    `json:"realm"`
	Description string   `json:"description,omitempty"`
	License     string   `json:"license,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	Include     []string `json:"include,omitempty"`
	Exclude     []string `json:"exclude,omitempty"`
	Private     bool     `json:"private,omitempty"`
}

// Metadata is one line of an index package file: a single published version.
type Metadata struct {
	Package            MetadataPackage   `json:"package"`
	Dependencies       map[string]string `json:"dependencies,omitempty"`
	ServerDependencies map[string]string `json:"server-dependencies,omitempty"`
	DevDependencies    map[string]string `json:"dev-dependencies,omitempty"`
}

// RawVersion returns the published version.
func (m Metadata) RawVersion() string { return m.Package.Version }

// Deprecated is always false; Wally has no yanking.
func (m Metadata) Deprecated() bool { return false }

// DependenciesFor returns the dependency table of a realm.
func (m Metadata) DependenciesFor(r Realm) map[string]string {
	switch r {
	case RealmDev:
		return m.DevDependencies
	case RealmServer:
		return m.ServerDependencies
	default:
		return m.Dependencies
	}
}

// Package npm provides an HTTP client for the npm registry API.
//
// # Overview
//
// This package fetches packuments from the npm registry
// (https://registry.npmjs.org), the package manager for JavaScript.
// A packument lists every published version of a package along with its
// dist-tags, publish times and per-version manifest fields.
//
// # Usage
//
//	client := npm.NewClient(npm.Options{})
//
//	meta, err := client.RegistryMetadata(ctx, "express")
//	if err != nil {
//	    return err
//	}
//
//	for _, v := range meta.VersionList() {
//	    fmt.Println(v.Version, v.Deprecated())
//	}
//
// # Loose Fields
//
// npm manifests are loosely typed. license, author and repository may be
// strings or objects; both forms decode into [License], [Human] and
// [Repository]. [Repository.URL] expands the "github:", "gitlab:" and
// "bitbucket:" shorthands.
//
// # Caching
//
// Packuments are cached in memory for 1 hour, or 15 minutes without access.
// Concurrent requests for the same package share one HTTP request.
package npm

// Package crates provides an HTTP client for crates.io.
//
// # Overview
//
// This package reads two crates.io endpoints:
//
//   - The sparse index (https://index.crates.io), one line of JSON per
//     published version. This is the source of version lists, yanked flags,
//     dependencies and features.
//   - The REST API (https://crates.io/api/v1), for descriptions, links,
//     download counts and search.
//
// # Usage
//
//	client := crates.NewClient(crates.Options{})
//
//	versions, err := client.SparseIndexMetadatas(ctx, "serde")
//	if errors.IsNotFound(err) {
//	    // no such crate
//	}
//
//	latest, ok := versioning.ExtractLatest("1.0.100", versions)
//
// # Caching
//
// Each endpoint has its own in-memory cache:
//
//   - index: 1 hour, or 15 minutes without access
//   - crate data: 4 hours, or 2 hours without access
//   - search: 8 hours, or 4 hours without access
//
// # Crawl Limit
//
// The crates.io data access policy allows one API request per second.
// [Client.CrateData] and [Client.SearchCrates] wait for a shared crawl
// window (1.25 seconds by default) before hitting the network. Cache hits
// are never delayed. The sparse index is not crawl limited.
package crates

// Package integrations provides HTTP clients for package registry APIs.
//
// # Overview
//
// This package contains low-level API clients for fetching version metadata
// from package registries. Each registry has its own subpackage:
//
//   - [crates]: Rust crates.io (sparse index and REST API)
//   - [npm]: Node Package Manager
//   - [github]: GitHub releases, repository files and trees
//   - [wally]: Wally package indexes, read through [github]
//
// # Client Pattern
//
// Registry clients embed a [Client] and keep their answers in time-bounded
// cache maps, so concurrent lookups of the same package share one request:
//
//	client := crates.NewClient(crates.Options{})
//	metas, err := client.SparseIndexMetadatas(ctx, "serde")
//
// Clients handle:
//   - Request headers, user agent and request IDs via [Transport]
//   - Classification of failures into [errors.Code] values
//   - Registry politeness through [ratelimit] coordinators
//
// [crates]: github.com/matzehuels/deputy/pkg/integrations/crates
// [npm]: github.com/matzehuels/deputy/pkg/integrations/npm
// [github]: github.com/matzehuels/deputy/pkg/integrations/github
// [wally]: github.com/matzehuels/deputy/pkg/integrations/wally
// [errors.Code]: github.com/matzehuels/deputy/pkg/errors.Code
// [ratelimit]: github.com/matzehuels/deputy/pkg/ratelimit
package integrations

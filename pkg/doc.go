// Package pkg provides the libraries behind deputy, the registry cache and
// version-resolution engine of a package-manifest language server.
//
// # Overview
//
// A language server editing Cargo.toml, package.json or wally.toml keeps
// asking the same questions: which versions does this dependency have, is
// the declared one the latest compatible one, and how should a partially
// typed version be completed. The pkg directory answers them in layers,
// leaves first:
//
//  1. [cache] - Time-bounded single-flight cache maps
//  2. [ratelimit] - Rate limit and crawl limit coordination per registry
//  3. [semver] - Version requirements and their minimum versions
//  4. [versioning] - Latest-version extraction and completion ranking
//  5. [integrations] - Registry clients (crates.io, npm, GitHub, Wally)
//  6. [clients] - The registry clients built together from a [config]
//
// # Quick Start
//
//	cfg, _ := config.Load("")
//	cl, _ := clients.New(cfg, clients.Options{})
//
//	items, _ := cl.Candidates(ctx, clients.Crates, "serde")
//	latest, ok := versioning.ExtractLatest("1.0.100", items)
//	if ok && !latest.IsExactlyCompatible {
//	    fmt.Println("update available:", latest.Item.RawVersion())
//	}
//
// # Testing
//
// Run tests:
//
//	go test ./...                        # All tests
//	go test -run Example ./pkg/...       # Examples only
//	go test -tags integration ./pkg/...  # Include live registry tests
//
// [cache]: https://pkg.go.dev/github.com/matzehuels/deputy/pkg/cache
// [ratelimit]: https://pkg.go.dev/github.com/matzehuels/deputy/pkg/ratelimit
// [semver]: https://pkg.go.dev/github.com/matzehuels/deputy/pkg/semver
// [versioning]: https://pkg.go.dev/github.com/matzehuels/deputy/pkg/versioning
// [integrations]: https://pkg.go.dev/github.com/matzehuels/deputy/pkg/integrations
// [clients]: https://pkg.go.dev/github.com/matzehuels/deputy/pkg/clients
// [config]: https://pkg.go.dev/github.com/matzehuels/deputy/pkg/config
package pkg

// Package versioning selects versions out of registry responses.
//
// Registry records (crate index lines, npm versions, GitHub releases, Wally
// metadata) implement [Versioned]. Two algorithms work on any slice of them:
//
//   - [ExtractLatest] finds the newest usable version relative to the one a
//     manifest pins, for upgrade diagnostics and hovers.
//   - [ExtractCompletions] ranks candidates against partially typed text,
//     for completion menus.
//
// Prereleases are only visible inside their own release line: a candidate
// 2.0.0-rc.1 is considered when inspecting 2.0.0-rc.0 but not 1.0.0.
package versioning

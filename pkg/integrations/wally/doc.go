// Package wally reads Wally package indexes hosted on GitHub.
//
// An index is a repository with a config.json at its root and one directory
// per scope. Each package is a file in its scope directory holding one JSON
// document per published version, oldest first:
//
//	config.json
//	roblox/
//	    owners.json
//	    roact
//	    promise
//
// Indexes may declare fallback indexes; [Client.IndexURLs] walks them breadth
// first and every lookup consults them in that order.
//
// # Caching
//
// Index configs are cached for 30 days (7 days idle). File and tree reads are
// cached by the underlying [github.Client] and are subject to its rate limit.
package wally

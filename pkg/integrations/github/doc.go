// Package github provides a client for the GitHub REST API.
//
// # Overview
//
// This package wraps github.com/google/go-github to read the repository
// data a manifest language server needs: releases (used as version
// candidates for GitHub-hosted tools), community profile metrics, single
// files and git trees (used to browse Wally indexes).
//
// # Usage
//
//	client, err := github.NewClient(github.Options{Token: os.Getenv("GITHUB_TOKEN")})
//	if err != nil {
//	    return err
//	}
//
//	releases, err := client.RepositoryReleases(ctx, "rojo-rbx", "rojo")
//	latest, ok := versioning.ExtractLatest("7.0.0", releases)
//
// # Rate Limits
//
// Anonymous clients may issue 60 requests per hour. When GitHub rejects a
// request, the client enters a limited state:
//
//   - [Client.IsRateLimited] reports true
//   - uncached requests fail immediately with a RATE_LIMITED error
//   - [Client.WaitForRateLimitChange] wakes up
//
// Calling [Client.SetAuthToken] rebuilds the underlying client with the new
// token, drops every cached response and leaves the limited state.
//
// # Caching
//
//   - metrics: 1 hour, or 15 minutes without access
//   - releases: 30 minutes, or 5 minutes without access
//   - files: 1 hour, or 15 minutes without access
//   - trees: 30 minutes, or 5 minutes without access
package github

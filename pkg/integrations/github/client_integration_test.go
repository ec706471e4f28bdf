//go:build integration

package github

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/matzehuels/deputy/pkg/errors"
)

func TestRepositoryReleases_Integration(t *testing.T) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		t.Skip("GITHUB_TOKEN not set, skipping integration test")
	}

	client, err := NewClient(Options{Token: token})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tests := []struct {
		name     string
		owner    string
		repo     string
		notFound bool
	}{
		{"rojo", "rojo-rbx", "rojo", false},
		{"nonexistent", "nonexistent-owner-12345", "nonexistent-repo", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			releases, err := client.RepositoryReleases(ctx, tt.owner, tt.repo)
			if tt.notFound {
				if !errors.IsNotFound(err) {
					t.Errorf("error = %v, want NOT_FOUND", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("RepositoryReleases() error: %v", err)
			}
			if len(releases) == 0 {
				t.Error("expected at least one release")
			}
		})
	}
}

func TestWallyIndexTree_Integration(t *testing.T) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		t.Skip("GITHUB_TOKEN not set, skipping integration test")
	}

	client, err := NewClient(Options{Token: token})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tree, err := client.RepositoryTree(ctx, "UpliftGames", "wally-index", "main")
	if err != nil {
		t.Fatalf("RepositoryTree() error: %v", err)
	}
	if _, ok := tree.FindNodeByPath("config.json"); !ok {
		t.Error("expected config.json at the index root")
	}
}

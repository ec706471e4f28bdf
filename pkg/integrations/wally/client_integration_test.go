//go:build integration

package wally

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/matzehuels/deputy/pkg/integrations/github"
)

func TestIndexMetadatas_Integration(t *testing.T) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		t.Skip("GITHUB_TOKEN not set, skipping integration test")
	}

	gh, err := github.NewClient(github.Options{Token: token})
	if err != nil {
		t.Fatalf("github.NewClient() error: %v", err)
	}
	client := NewClient(Options{GitHub: gh})

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	urls, err := client.IndexURLs(ctx, DefaultIndexURL)
	if err != nil {
		t.Fatalf("IndexURLs() error: %v", err)
	}
	if len(urls) == 0 || urls[0] != "https://github.com/upliftgames/wally-index" {
		t.Errorf("IndexURLs() = %v, want the main index first", urls)
	}

	metas, err := client.IndexMetadatas(ctx, DefaultIndexURL, "evaera", "promise")
	if err != nil {
		t.Fatalf("IndexMetadatas() error: %v", err)
	}
	if len(metas) == 0 {
		t.Fatal("expected at least one version of evaera/promise")
	}
	if metas[0].Package.Name != "evaera/promise" {
		t.Errorf("package name = %q", metas[0].Package.Name)
	}
}

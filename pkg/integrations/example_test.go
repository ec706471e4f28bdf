package integrations_test

import (
	"fmt"

	"github.com/matzehuels/deputy/pkg/integrations"
)

func ExampleNormalizePkgName() {
	// Package names are trimmed and lower-cased for lookups
	fmt.Println(integrations.NormalizePkgName("Serde"))
	fmt.Println(integrations.NormalizePkgName("  Tokio  "))
	// Output:
	// serde
	// tokio
}

func ExampleNormalizeRepoURL() {
	// Various repository URL formats are normalized to HTTPS
	fmt.Println(integrations.NormalizeRepoURL("git@github.com:user/repo.git"))
	fmt.Println(integrations.NormalizeRepoURL("git://github.com/user/repo"))
	fmt.Println(integrations.NormalizeRepoURL("git+https://github.com/user/repo.git"))
	fmt.Println(integrations.NormalizeRepoURL("https://github.com/user/repo"))
	// Output:
	// https://github.com/user/repo
	// https://github.com/user/repo
	// https://github.com/user/repo
	// https://github.com/user/repo
}

func ExamplePathEscape() {
	// Scoped npm names keep their slash escaped inside a registry path
	fmt.Println(integrations.PathEscape("@types/node"))
	// Output:
	// @types%2Fnode
}

func ExampleParseGitHubURL() {
	owner, repo, _ := integrations.ParseGitHubURL("https://github.com/UpliftGames/wally-index")
	fmt.Println(owner, repo)
	// Output:
	// UpliftGames wally-index
}

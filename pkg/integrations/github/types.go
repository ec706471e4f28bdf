package github

import (
	"strings"
	"time"

	"github.com/google/go-github/v67/github"
)

// RepositoryMetrics is the community profile of a repository.
type RepositoryMetrics struct {
	Description      string    `json:"description,omitempty"`
	Documentation    string    `json:"documentation,omitempty"`
	HealthPercentage int       `json:"health_percentage"`
	UpdatedAt        time.Time `json:"updated_at,omitempty"`
}

// Release is a published (or draft) GitHub release. It implements
// versioning.Versioned using the tag name without its "v" prefix.
type Release struct {
	TagName     string         `json:"tag_name"`
	Name        string         `json:"name,omitempty"`
	Body        string         `json:"body,omitempty"`
	Draft       bool           `json:"draft"`
	Prerelease  bool           `json:"prerelease"`
	CreatedAt   time.Time      `json:"created_at,omitempty"`
	PublishedAt time.Time      `json:"published_at,omitempty"`
	Assets      []ReleaseAsset `json:"assets,omitempty"`
}

// ReleaseAsset is a file attached to a release.
type ReleaseAsset struct {
	Name          string `json:"name"`
	Label         string `json:"label,omitempty"`
	ContentType   string `json:"content_type"`
	Size          int    `json:"size"`
	DownloadCount int    `json:"download_count"`
}

// RawVersion returns the tag name with a leading "v" removed.
func (r Release) RawVersion() string { return strings.TrimPrefix(r.TagName, "v") }

// Deprecated reports whether the release is a draft.
func (r Release) Deprecated() bool { return r.Draft }

// NodeKind is the type of a git tree entry.
type NodeKind string

const (
	NodeBlob NodeKind = "blob"
	NodeTree NodeKind = "tree"
)

// TreeNode is one entry of a git tree. Path is relative to the tree.
type TreeNode struct {
	SHA  string   `json:"sha"`
	Path string   `json:"path"`
	Kind NodeKind `json:"type"`
	Size int      `json:"size,omitempty"`
}

// Tree is a single (non-recursive) level of a git tree.
type Tree struct {
	SHA       string     `json:"sha"`
	Nodes     []TreeNode `json:"tree"`
	Truncated bool       `json:"truncated"`
}

// FindNodeByPath returns the entry whose path equals path, ignoring case.
func (t Tree) FindNodeByPath(path string) (TreeNode, bool) {
	for _, n := range t.Nodes {
		if strings.EqualFold(n.Path, path) {
			return n, true
		}
	}
	return TreeNode{}, false
}

// DirectoryPaths returns the paths of all subtree entries.
func (t Tree) DirectoryPaths() []string {
	var out []string
	for _, n := range t.Nodes {
		if n.Kind == NodeTree {
			out = append(out, n.Path)
		}
	}
	return out
}

// FilePathsExcludingJSON returns the paths of all blob entries that are not
// .json files.
func (t Tree) FilePathsExcludingJSON() []string {
	var out []string
	for _, n := range t.Nodes {
		if n.Kind == NodeBlob && !strings.HasSuffix(strings.ToLower(n.Path), ".json") {
			out = append(out, n.Path)
		}
	}
	return out
}

func convertMetrics(m *github.CommunityHealthMetrics) RepositoryMetrics {
	return RepositoryMetrics{
		Description:      m.GetDescription(),
		Documentation:    m.GetDocumentation(),
		HealthPercentage: m.GetHealthPercentage(),
		UpdatedAt:        m.GetUpdatedAt().Time,
	}
}

func convertRelease(r *github.RepositoryRelease) Release {
	rel := Release{
		TagName:     r.GetTagName(),
		Name:        r.GetName(),
		Body:        r.GetBody(),
		Draft:       r.GetDraft(),
		Prerelease:  r.GetPrerelease(),
		CreatedAt:   r.GetCreatedAt().Time,
		PublishedAt: r.GetPublishedAt().Time,
	}
	for _, a := range r.Assets {
		rel.Assets = append(rel.Assets, ReleaseAsset{
			Name:          a.GetName(),
			Label:         a.GetLabel(),
			ContentType:   a.GetContentType(),
			Size:          a.GetSize(),
			DownloadCount: a.GetDownloadCount(),
		})
	}
	return rel
}

func convertTree(t *github.Tree) Tree {
	tree := Tree{SHA: t.GetSHA(), Truncated: t.GetTruncated()}
	for _, e := range t.Entries {
		tree.Nodes = append(tree.Nodes, TreeNode{
			SHA:  e.GetSHA(),
			Path: e.GetPath(),
			Kind: NodeKind(e.GetType()),
			Size: e.GetSize(),
		})
	}
	return tree
}

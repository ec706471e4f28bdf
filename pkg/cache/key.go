package cache

import "strings"

// Key builds a normalized cache key: each part is trimmed of whitespace and
// surrounding slashes, lower-cased, and the non-empty parts are joined with
// "/". Logically identical requests always produce the same key.
//
//	Key("Serde")             // "serde"
//	Key("Owner", "Repo/")    // "owner/repo"
func Key(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.Trim(strings.TrimSpace(p), "/"))
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "/")
}

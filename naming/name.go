// Package naming derives artifact base names from page URLs.
package naming

import (
	"net/url"
	"regexp"
	"strings"
)

// Fallback is returned for URLs that cannot be parsed.
const Fallback = "capture"

var (
	slashRuns  = regexp.MustCompile(`/+`)
	invalidRun = regexp.MustCompile(`[^a-z0-9._-]+`)
	dashRuns   = regexp.MustCompile(`-+`)
	underRuns  = regexp.MustCompile(`_+`)
)

// DeriveName turns a URL into a file-system friendly base name:
//
//	<host-without-www>_<path-with-slashes-as-underscores>[_q]
//
// "_q" marks URLs carrying query parameters. The result is lower-cased and
// restricted to [a-z0-9._-]. Unparsable URLs yield Fallback.
func DeriveName(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" || u.Opaque != "" {
		return Fallback
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	path := slashRuns.ReplaceAllString(u.EscapedPath(), "_")
	path = strings.Trim(path, "_")

	parts := make([]string, 0, 2)
	for _, p := range []string{host, path} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	raw := strings.Join(parts, "_")
	if len(u.Query()) > 0 {
		raw += "_q"
	}

	name := invalidRun.ReplaceAllString(strings.ToLower(raw), "-")
	name = dashRuns.ReplaceAllString(name, "-")
	name = underRuns.ReplaceAllString(name, "_")
	if name == "" || name == "_q" {
		return Fallback
	}
	return name
}

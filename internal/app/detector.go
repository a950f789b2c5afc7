package app

import (
	"path"
	"path/filepath"
	"strings"
)

// SourceType represents where the analysed code comes from
type SourceType string

const (
	SourceGit     SourceType = "git"
	SourceLocal   SourceType = "local"
	SourceUnknown SourceType = "unknown"
)

// DetectSource classifies a repository argument as a git remote or a local path
func DetectSource(src string) SourceType {
	src = strings.TrimSpace(src)
	if src == "" {
		return SourceUnknown
	}
	lower := strings.ToLower(src)

	if strings.HasPrefix(src, "git@") ||
		strings.HasPrefix(lower, "ssh://") ||
		strings.HasPrefix(lower, "git://") ||
		strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "file://") {
		return SourceGit
	}

	// bare host paths such as github.com/org/repo
	if strings.HasPrefix(lower, "github.com/") ||
		strings.HasPrefix(lower, "gitlab.com/") ||
		strings.HasPrefix(lower, "bitbucket.org/") {
		return SourceGit
	}

	return SourceLocal
}

// NormalizeRepoURL adds https:// to bare host paths
func NormalizeRepoURL(src string) string {
	src = strings.TrimSpace(src)
	lower := strings.ToLower(src)
	if DetectSource(src) == SourceGit && !strings.Contains(lower, "://") && !strings.HasPrefix(src, "git@") {
		return "https://" + src
	}
	return src
}

// SystemName derives the analysed system's display name from a repository
// URL or directory: the last path segment without a .git suffix
func SystemName(src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}

	var base string
	switch DetectSource(src) {
	case SourceGit:
		s := src
		if i := strings.Index(s, "://"); i >= 0 {
			s = s[i+3:]
		}
		// scp-like git@host:org/repo
		if strings.HasPrefix(s, "git@") {
			if i := strings.Index(s, ":"); i >= 0 {
				s = s[i+1:]
			}
		}
		s = strings.SplitN(s, "?", 2)[0]
		s = strings.SplitN(s, "#", 2)[0]
		base = path.Base(strings.TrimRight(s, "/"))
	default:
		abs, err := filepath.Abs(src)
		if err != nil {
			abs = src
		}
		base = filepath.Base(abs)
	}

	base = strings.TrimSuffix(base, ".git")
	if base == "" || base == "." || base == "/" || base == string(filepath.Separator) {
		return ""
	}
	return base
}

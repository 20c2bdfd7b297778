package repos

import (
	"strings"

	"github.com/gitsight/go-vcsurl"

	"github.com/codesentry/codesentry/pkg/shared/errors"
)

// Ref is a repository reference decomposed into its owner and name.
type Ref struct {
	URL   string
	Owner string
	Name  string
}

// FullName returns the owner/name form of the reference.
func (r Ref) FullName() string {
	return r.Owner + "/" + r.Name
}

// Parse decomposes a repository reference into owner and name. References
// that do not yield at least two path segments are rejected with a
// ValidationError.
func Parse(rawURL string) (*Ref, error) {
	if rawURL == "" {
		return nil, errors.NewValidationError("repository_url", "is required")
	}

	if info, err := vcsurl.Parse(rawURL); err == nil && info.Username != "" && info.Name != "" {
		return &Ref{URL: rawURL, Owner: info.Username, Name: trimGitSuffix(info.Name)}, nil
	}

	// Fall back to plain path-segment splitting for hosts the VCS URL
	// parser does not recognize.
	trimmed := rawURL
	for _, prefix := range []string{"https://", "http://", "ssh://", "git@"} {
		trimmed = strings.TrimPrefix(trimmed, prefix)
	}
	trimmed = strings.ReplaceAll(trimmed, ":", "/")

	segments := splitPath(trimmed)
	if len(segments) == 0 {
		return nil, errors.NewValidationError("repository_url", "must reference a repository as owner/name")
	}
	if strings.Contains(segments[0], ".") {
		// Drop a leading host segment so bare owner/name references and
		// full URLs decompose the same way.
		segments = segments[1:]
	}
	if len(segments) < 2 {
		return nil, errors.NewValidationError("repository_url", "must reference a repository as owner/name")
	}

	owner := segments[len(segments)-2]
	name := trimGitSuffix(segments[len(segments)-1])
	if owner == "" || name == "" {
		return nil, errors.NewValidationError("repository_url", "must reference a repository as owner/name")
	}
	return &Ref{URL: rawURL, Owner: owner, Name: name}, nil
}

func splitPath(path string) []string {
	var segments []string
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}

func trimGitSuffix(name string) string {
	return strings.TrimSuffix(name, ".git")
}

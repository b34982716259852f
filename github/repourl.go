package github

import (
	"net/url"
	"strings"

	"github.com/example42/sai-suite-sub001/errors"
)

// ParseRepoURL extracts owner and repository name from an https, ssh or
// scp-style repository URL.
//
//	ParseRepoURL("https://github.com/example42/saidata.git") // "example42", "saidata"
//	ParseRepoURL("git@github.com:example42/saidata.git")     // "example42", "saidata"
func ParseRepoURL(raw string) (owner, repo string, err error) {
	path := ""
	if strings.Contains(raw, "://") {
		u, perr := url.Parse(raw)
		if perr != nil {
			return "", "", errors.Wrapf(perr, errors.CodeInvalidInput, "invalid repository URL %q", raw)
		}
		path = u.Path
	} else if at, colon := strings.Index(raw, "@"), strings.Index(raw, ":"); colon > at && colon >= 0 {
		path = raw[colon+1:]
	} else {
		return "", "", errors.Newf(errors.CodeInvalidInput, "invalid repository URL %q", raw)
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 {
		return "", "", errors.Newf(errors.CodeInvalidInput, "repository URL %q has no owner/name", raw)
	}
	owner = parts[len(parts)-2]
	repo = strings.TrimSuffix(parts[len(parts)-1], ".git")
	if owner == "" || repo == "" || owner == ".." || repo == ".." {
		return "", "", errors.Newf(errors.CodeInvalidInput, "repository URL %q has no owner/name", raw)
	}
	return owner, repo, nil
}

package security

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/example42/sai-suite-sub001/errors"
)

// ValidationResult holds the findings for a repository URL.
type ValidationResult struct {
	Valid    bool
	Issues   []string
	Warnings []string
}

// Err returns nil for a valid result and a CodeSecurity error listing the
// issues otherwise.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return errors.Newf(errors.CodeSecurity, "repository URL rejected: %s", strings.Join(r.Issues, "; "))
}

// shellMetacharacters are rejected at every level.
const shellMetacharacters = ";|&$`()<>\n\r\x00"

var allowedSchemes = map[string]bool{
	"https": true,
	"git":   true,
	"ssh":   true,
}

// finding is a single URL problem. Critical findings stay issues at every level.
type finding struct {
	msg      string
	critical bool
}

// ValidateRepositoryURL checks raw against the scheme allow-list and
// rejects injection and traversal attempts. The result never panics and
// never touches the network.
func (v *Validator) ValidateRepositoryURL(raw string) ValidationResult {
	var issues []finding
	var warnings []string

	addIssue := func(critical bool, format string, args ...interface{}) {
		issues = append(issues, finding{msg: fmt.Sprintf(format, args...), critical: critical})
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ValidationResult{Issues: []string{"repository URL is empty"}}
	}
	if trimmed != raw {
		warnings = append(warnings, "repository URL has surrounding whitespace")
	}

	if i := strings.IndexAny(trimmed, shellMetacharacters); i >= 0 {
		addIssue(true, "repository URL contains shell metacharacter %q", trimmed[i])
	}
	if strings.ContainsAny(trimmed, " \t") {
		addIssue(true, "repository URL contains whitespace")
	}

	if hasTraversal(trimmed) {
		addIssue(false, "repository URL contains a path traversal sequence")
	}

	scheme, host, userinfo, err := splitRepositoryURL(trimmed)
	if err != nil {
		addIssue(false, "repository URL cannot be parsed: %v", err)
		return v.finish(issues, warnings)
	}

	switch {
	case scheme == "http":
		if v.level == LevelStrict {
			addIssue(false, "plain http is not allowed; use https")
		} else {
			warnings = append(warnings, "plain http transfers are not encrypted; prefer https")
		}
	case !allowedSchemes[scheme]:
		addIssue(false, "scheme %q is not allowed", scheme)
	}

	if host == "" {
		addIssue(false, "repository URL has no host")
	} else if !v.allowPrivateHosts && isPrivateHost(host) {
		addIssue(false, "host %q is a loopback or private network address", host)
	}

	if userinfo != nil {
		if _, hasPassword := userinfo.Password(); hasPassword {
			warnings = append(warnings, "repository URL embeds a password; use the credential store instead")
		}
	}

	return v.finish(issues, warnings)
}

// Check validates raw and logs its warnings. It returns the CodeSecurity
// error from ValidationResult.Err when the URL is rejected.
func (v *Validator) Check(raw string) error {
	res := v.ValidateRepositoryURL(raw)
	for _, w := range res.Warnings {
		v.logger.Warn("repository URL warning", zap.String("url", RedactURL(raw)), zap.String("warning", w))
	}
	return res.Err()
}

func (v *Validator) finish(issues []finding, warnings []string) ValidationResult {
	res := ValidationResult{Warnings: warnings}
	for _, f := range issues {
		if v.level == LevelPermissive && !f.critical {
			res.Warnings = append(res.Warnings, f.msg)
			continue
		}
		res.Issues = append(res.Issues, f.msg)
	}
	res.Valid = len(res.Issues) == 0
	return res
}

// splitRepositoryURL understands both URL syntax and scp-like
// "user@host:path" syntax, which is reported as scheme "ssh".
func splitRepositoryURL(raw string) (scheme, host string, user *url.Userinfo, err error) {
	if !strings.Contains(raw, "://") {
		at := strings.Index(raw, "@")
		colon := strings.Index(raw, ":")
		if at > 0 && colon > at+1 {
			return "ssh", raw[at+1 : colon], nil, nil
		}
		return "", "", nil, fmt.Errorf("missing scheme")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", "", nil, err
	}
	return strings.ToLower(u.Scheme), u.Hostname(), u.User, nil
}

func hasTraversal(s string) bool {
	lower := strings.ToLower(s)
	for _, variant := range []string{"%2e%2e", "..%2f", "..%5c", "..%c0%af"} {
		if strings.Contains(lower, variant) {
			return true
		}
	}
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '\\' || r == ':' }) {
		if part == ".." {
			return true
		}
	}
	return false
}

func isPrivateHost(host string) bool {
	h := strings.ToLower(strings.Trim(host, "[]"))
	if h == "localhost" || strings.HasSuffix(h, ".localhost") {
		return true
	}
	addr, err := netip.ParseAddr(h)
	if err != nil {
		return false
	}
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsUnspecified()
}

// RedactURL strips userinfo from raw so it can be logged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = nil
	return u.String()
}

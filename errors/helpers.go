package errors

import (
	stderrors "errors"
)

// Is is a convenience wrapper around the standard library errors.Is.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As is a convenience wrapper around the standard library errors.As.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// GetCode extracts the ErrorCode from the outermost PlatformError in the
// chain. Returns CodeUnknown if err is nil or carries no code.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	var platformErr PlatformError
	if stderrors.As(err, &platformErr) {
		return platformErr.Code()
	}
	return CodeUnknown
}

// GetClassification extracts the classification from err.
// Returns ClassificationPermanent for nil and plain errors.
func GetClassification(err error) ErrorClassification {
	if err == nil {
		return ClassificationPermanent
	}
	var platformErr PlatformError
	if stderrors.As(err, &platformErr) {
		return platformErr.Classification()
	}
	return ClassificationPermanent
}

// IsRetryable reports whether a transport should try err's operation again.
func IsRetryable(err error) bool {
	return GetClassification(err).IsRetryable()
}

// IsSecurity reports whether any error in the chain is a security violation.
// Callers must not fall back to another transport or to degraded data when
// this returns true for content they were about to publish.
func IsSecurity(err error) bool {
	for err != nil {
		var platformErr PlatformError
		if !stderrors.As(err, &platformErr) {
			return false
		}
		if platformErr.Code() == CodeSecurity {
			return true
		}
		err = platformErr.Unwrap()
	}
	return false
}

var guidance = map[ErrorCode]string{
	CodeUnauthorized:   "check the configured credentials; for SSH keys verify the key file exists with 0600 permissions and is loaded in your agent",
	CodeNotFound:       "verify the repository URL is correct and that the repository is reachable with the configured credentials",
	CodeBranchNotFound: "verify the configured branch exists in the remote repository",
	CodeNetwork:        "check network connectivity and proxy settings; cached data will be used if available",
	CodeTimeout:        "the remote did not answer in time; increase the timeout or retry later",
	CodeRateLimit:      "the release API rate limit was hit; configure a token or wait before retrying",
	CodeDiskSpace:      "free disk space on the cache volume or lower the cache size limit",
	CodePermission:     "check ownership and permissions of the cache directory",
	CodeIntegrity:      "the fetched content failed verification; clear the cache entry and fetch again",
	CodeSecurity:       "the source was blocked by security validation; review the repository URL and release assets",
	CodeUnavailable:    "install git or rely on the release archive transport",
}

// Guidance returns actionable next steps for the failure category of err.
// Returns an empty string when no specific advice exists.
func Guidance(err error) string {
	return guidance[GetCode(err)]
}

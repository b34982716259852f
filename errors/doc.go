// Package errors provides the structured error taxonomy shared by the
// repository synchronizer.
//
// Every failure produced by a transport, the cache or the security layer is
// a PlatformError carrying an ErrorCode and a classification. The
// classification drives retry decisions; the code drives user guidance.
//
// # Taxonomy
//
//   - Authentication: CodeUnauthorized
//   - Transport: CodeNetwork, CodeTimeout, CodeRateLimit, CodeUnavailable
//   - Repository: CodeNotFound, CodeBranchNotFound
//   - Verification: CodeIntegrity, CodeSecurity
//   - Local resources: CodeDiskSpace, CodePermission
//   - Programmer errors: CodeInvalidInput, CodeInvalidConfig
//
// Network, timeout, rate limit and availability failures are retryable by
// default. Everything else is permanent. WithClassification overrides the
// default when a transport knows better (for example a network error whose
// message says the host does not exist).
//
// # Usage
//
//	if err := clone(); err != nil {
//	    err = errors.Wrap(err, errors.CodeNetwork, "git clone failed")
//	    if errors.IsRetryable(err) {
//	        // back off and try again
//	    }
//	    logger.Warn("clone failed", zap.Error(err), zap.String("hint", errors.Guidance(err)))
//	}
//
// CodeSecurity is special: IsSecurity reports whether it appears anywhere in
// the chain, and callers treat it as fatal for the operation.
package errors

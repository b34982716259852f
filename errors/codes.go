package errors

// ErrorCode identifies the failure category of a synchronization operation.
// Codes are strings so they read well in logs and serialize naturally.
type ErrorCode string

const (
	// Repository errors.

	// CodeNotFound indicates the remote repository, branch, release or
	// catalog entry does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeBranchNotFound indicates the requested branch is missing upstream.
	CodeBranchNotFound ErrorCode = "BRANCH_NOT_FOUND"

	// Credential errors.

	// CodeUnauthorized indicates the remote rejected or required credentials.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodePermission indicates a local filesystem permission problem.
	CodePermission ErrorCode = "PERMISSION_DENIED"

	// Input errors.

	// CodeInvalidInput indicates a malformed argument such as a software name.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInvalidConfig indicates the synchronizer configuration is unusable.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// Transfer errors.

	// CodeNetwork indicates a transient network failure.
	CodeNetwork ErrorCode = "NETWORK_ERROR"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeRateLimit indicates the release API rate limit was exceeded.
	CodeRateLimit ErrorCode = "RATE_LIMIT_EXCEEDED"

	// CodeUnavailable indicates a required tool (git, gpg) or service is unavailable.
	CodeUnavailable ErrorCode = "UNAVAILABLE"

	// Verification errors.

	// CodeIntegrity indicates fetched content failed post-fetch verification.
	CodeIntegrity ErrorCode = "INTEGRITY_ERROR"

	// CodeSecurity indicates an unsafe URL, path or archive was blocked.
	// Security errors are always fatal for the operation that raised them.
	CodeSecurity ErrorCode = "SECURITY_VIOLATION"

	// Local resource errors.

	// CodeDiskSpace indicates the cache volume ran out of space.
	CodeDiskSpace ErrorCode = "DISK_SPACE"

	// CodeExecutionFailed indicates a subprocess exited unsuccessfully.
	CodeExecutionFailed ErrorCode = "EXECUTION_FAILED"

	// CodeInternal indicates an unexpected internal failure.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeUnknown indicates an unclassified failure.
	CodeUnknown ErrorCode = "UNKNOWN"
)

package errors

// ErrorClassification indicates whether a failed fetch is worth retrying.
type ErrorClassification string

const (
	// ClassificationRetryable marks temporary failures such as dropped
	// connections or timeouts.
	ClassificationRetryable ErrorClassification = "RETRYABLE"

	// ClassificationPermanent marks failures that will not succeed on retry
	// such as bad credentials or a missing repository.
	ClassificationPermanent ErrorClassification = "PERMANENT"
)

// IsRetryable returns true if the classification indicates retry should be attempted.
func (c ErrorClassification) IsRetryable() bool {
	return c == ClassificationRetryable
}

var defaultClassifications = map[ErrorCode]ErrorClassification{
	CodeNetwork:     ClassificationRetryable,
	CodeTimeout:     ClassificationRetryable,
	CodeRateLimit:   ClassificationRetryable,
	CodeUnavailable: ClassificationRetryable,

	CodeNotFound:        ClassificationPermanent,
	CodeBranchNotFound:  ClassificationPermanent,
	CodeUnauthorized:    ClassificationPermanent,
	CodePermission:      ClassificationPermanent,
	CodeInvalidInput:    ClassificationPermanent,
	CodeInvalidConfig:   ClassificationPermanent,
	CodeIntegrity:       ClassificationPermanent,
	CodeSecurity:        ClassificationPermanent,
	CodeDiskSpace:       ClassificationPermanent,
	CodeExecutionFailed: ClassificationPermanent,
	CodeInternal:        ClassificationPermanent,
	CodeUnknown:         ClassificationPermanent,
}

// getDefaultClassification returns ClassificationPermanent for unmapped codes.
func getDefaultClassification(code ErrorCode) ErrorClassification {
	if class, ok := defaultClassifications[code]; ok {
		return class
	}
	return ClassificationPermanent
}

package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(CodeSecurity, "blocked")

	require.NotNil(t, err)
	assert.Equal(t, CodeSecurity, err.Code())
	assert.Equal(t, ClassificationPermanent, err.Classification())
	assert.Equal(t, "blocked", err.Message())
	assert.Equal(t, "[SECURITY_VIOLATION] blocked", err.Error())
	assert.Nil(t, err.Context())
	assert.Nil(t, err.Unwrap())
}

func TestNewf(t *testing.T) {
	err := Newf(CodeInvalidInput, "invalid software name %q", "Bad Name")
	assert.Equal(t, `invalid software name "Bad Name"`, err.Message())
}

func TestDefaultClassification(t *testing.T) {
	tests := []struct {
		code      ErrorCode
		retryable bool
	}{
		{CodeNetwork, true},
		{CodeTimeout, true},
		{CodeRateLimit, true},
		{CodeUnavailable, true},
		{CodeNotFound, false},
		{CodeUnauthorized, false},
		{CodeIntegrity, false},
		{CodeSecurity, false},
		{CodeDiskSpace, false},
		{ErrorCode("SOMETHING_NEW"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.retryable, New(tt.code, "x").Classification().IsRetryable())
		})
	}
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("connection reset by peer")
	err := Wrap(cause, CodeNetwork, "fetch failed")

	require.NotNil(t, err)
	assert.Equal(t, CodeNetwork, err.Code())
	assert.True(t, err.Classification().IsRetryable())
	assert.Equal(t, cause, err.Unwrap())
	assert.Equal(t, "[NETWORK_ERROR] fetch failed: connection reset by peer", err.Error())
	assert.True(t, stderrors.Is(err, cause))
}

func TestWrap_NilError(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeNetwork, "x"))
	assert.Nil(t, Wrapf(nil, CodeNetwork, "x %d", 1))
}

func TestWrap_PreservesClassification(t *testing.T) {
	permanent := WithClassification(New(CodeNetwork, "host does not exist"), ClassificationPermanent)
	wrapped := Wrap(permanent, CodeNetwork, "clone failed")

	assert.False(t, wrapped.Classification().IsRetryable())
}

func TestWithContext(t *testing.T) {
	original := New(CodeNotFound, "release not found")
	withURL := WithContext(original, "url", "https://github.com/o/r")
	withBoth := WithContext(withURL, "branch", "main")

	assert.Nil(t, original.Context())
	assert.Equal(t, map[string]interface{}{"url": "https://github.com/o/r"}, withURL.Context())
	assert.Equal(t, map[string]interface{}{"url": "https://github.com/o/r", "branch": "main"}, withBoth.Context())

	ctx := withBoth.Context()
	ctx["url"] = "mutated"
	assert.Equal(t, "https://github.com/o/r", withBoth.Context()["url"])
}

func TestWithContext_StandardError(t *testing.T) {
	err := WithContext(stderrors.New("plain"), "k", "v")
	assert.Equal(t, CodeUnknown, err.Code())
	assert.Equal(t, "plain", err.Message())
	assert.Nil(t, WithContext(nil, "k", "v"))
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, CodeUnknown},
		{"plain", stderrors.New("x"), CodeUnknown},
		{"platform", New(CodeDiskSpace, "full"), CodeDiskSpace},
		{"fmt wrapped", fmt.Errorf("outer: %w", New(CodeTimeout, "slow")), CodeTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetCode(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(stderrors.New("plain")))
	assert.True(t, IsRetryable(New(CodeTimeout, "slow")))
	assert.False(t, IsRetryable(New(CodeUnauthorized, "denied")))
}

func TestIsSecurity(t *testing.T) {
	security := New(CodeSecurity, "member escapes target")

	assert.True(t, IsSecurity(security))
	assert.True(t, IsSecurity(Wrap(security, CodeIntegrity, "extraction aborted")))
	assert.True(t, IsSecurity(fmt.Errorf("download: %w", Wrap(security, CodeNetwork, "x"))))
	assert.False(t, IsSecurity(New(CodeNetwork, "x")))
	assert.False(t, IsSecurity(stderrors.New("x")))
	assert.False(t, IsSecurity(nil))
}

func TestGuidance(t *testing.T) {
	assert.Contains(t, Guidance(New(CodeUnauthorized, "x")), "SSH key")
	assert.Contains(t, Guidance(New(CodeDiskSpace, "x")), "disk space")
	assert.Empty(t, Guidance(New(CodeInternal, "x")))
	assert.Empty(t, Guidance(nil))
}

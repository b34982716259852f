package git

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example42/sai-suite-sub001/errors"
	"github.com/example42/sai-suite-sub001/exec"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       *exec.ExecError
		code      errors.ErrorCode
		retryable bool
	}{
		{"timeout", &exec.ExecError{ExitCode: -1, TimedOut: true}, errors.CodeTimeout, true},
		{"not started", &exec.ExecError{ExitCode: -1}, errors.CodeUnavailable, false},
		{"publickey", &exec.ExecError{ExitCode: 128, Stderr: "git@github.com: Permission denied (publickey).\nfatal: Could not read from remote repository."}, errors.CodeUnauthorized, false},
		{"host key", &exec.ExecError{ExitCode: 128, Stderr: "Host key verification failed."}, errors.CodeUnauthorized, false},
		{"http 403", &exec.ExecError{ExitCode: 128, Stderr: "fatal: unable to access 'x': The requested URL returned error: 403"}, errors.CodeUnauthorized, false},
		{"dns", &exec.ExecError{ExitCode: 128, Stderr: "fatal: unable to access 'x': Could not resolve host: github.com"}, errors.CodeNetwork, false},
		{"reset", &exec.ExecError{ExitCode: 128, Stderr: "fatal: unable to access 'x': Connection reset by peer"}, errors.CodeNetwork, true},
		{"http 502", &exec.ExecError{ExitCode: 128, Stderr: "fatal: unable to access 'x': The requested URL returned error: 502"}, errors.CodeNetwork, true},
		{"conn timeout", &exec.ExecError{ExitCode: 128, Stderr: "ssh: connect to host github.com port 22: Connection timed out"}, errors.CodeTimeout, true},
		{"file permission", &exec.ExecError{ExitCode: 128, Stderr: "fatal: could not create work tree dir 'x': Permission denied"}, errors.CodePermission, false},
		{"unknown", &exec.ExecError{ExitCode: 1, Stderr: "fatal: something odd"}, errors.CodeExecutionFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err, "clone")
			assert.Equal(t, tt.code, errors.GetCode(got))
			assert.Equal(t, tt.retryable, errors.IsRetryable(got))

			var execErr *exec.ExecError
			assert.True(t, stderrors.As(got, &execErr), "cause must stay reachable")
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	assert.NoError(t, classify(nil, "clone"))
}

func TestLastLine(t *testing.T) {
	assert.Equal(t, "fatal: early EOF", lastLine("error: RPC failed\nfatal: early EOF\n\n"))
	assert.Equal(t, "no output", lastLine("   "))
}

package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/example42/sai-suite-sub001/exec"
)

// Call is one recorded Run on a FakeExecutor.
type Call struct {
	Args    []string
	Env     map[string]string
	Dir     string
	Secrets []string
	Timeout time.Duration
	Ctx     context.Context
}

// Command returns the arguments joined by spaces.
func (c Call) Command() string {
	return strings.Join(c.Args, " ")
}

// Handler scripts the outcome of a Run.
type Handler func(call Call) (*exec.Result, error)

// FakeExecutor is an exec.Executor that records every Run and answers
// through a Handler. Clones share the recording, so a FakeExecutor handed
// to a component sees all runs made through its clones.
type FakeExecutor struct {
	state   *fakeState
	pending Call
}

type fakeState struct {
	mu      sync.Mutex
	handler Handler
	calls   []Call
}

// NewFakeExecutor returns an executor answering with handler. A nil
// handler succeeds with empty output.
func NewFakeExecutor(handler Handler) *FakeExecutor {
	if handler == nil {
		handler = func(Call) (*exec.Result, error) { return &exec.Result{}, nil }
	}
	return &FakeExecutor{state: &fakeState{handler: handler}}
}

// Calls returns a copy of every recorded run.
func (f *FakeExecutor) Calls() []Call {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	return append([]Call(nil), f.state.calls...)
}

// CallsWith returns the runs whose arguments contain every one of parts.
func (f *FakeExecutor) CallsWith(parts ...string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		match := true
		for _, p := range parts {
			if !containsArg(c.Args, p) {
				match = false
				break
			}
		}
		if match {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeExecutor) WithEnv(env map[string]string) exec.Executor {
	if f.pending.Env == nil {
		f.pending.Env = make(map[string]string, len(env))
	}
	for k, v := range env {
		f.pending.Env[k] = v
	}
	return f
}

func (f *FakeExecutor) WithDir(dir string) exec.Executor {
	f.pending.Dir = dir
	return f
}

func (f *FakeExecutor) WithContext(ctx context.Context) exec.Executor {
	f.pending.Ctx = ctx
	return f
}

func (f *FakeExecutor) WithTimeout(d time.Duration) exec.Executor {
	f.pending.Timeout = d
	return f
}

func (f *FakeExecutor) WithInheritEnv() exec.Executor { return f }

func (f *FakeExecutor) WithSecrets(secrets ...string) exec.Executor {
	f.pending.Secrets = append(f.pending.Secrets, secrets...)
	return f
}

func (f *FakeExecutor) Run(args ...string) (*exec.Result, error) {
	call := f.pending
	call.Args = append([]string(nil), args...)
	f.pending = Call{}

	f.state.mu.Lock()
	f.state.calls = append(f.state.calls, call)
	handler := f.state.handler
	f.state.mu.Unlock()

	return handler(call)
}

func (f *FakeExecutor) Clone() exec.Executor {
	return &FakeExecutor{state: f.state}
}

// Fail builds the error a real executor returns for a non-zero exit.
func Fail(call Call, exitCode int, stderr string) (*exec.Result, error) {
	res := &exec.Result{Stderr: stderr, Combined: stderr, ExitCode: exitCode}
	return res, &exec.ExecError{
		Command:  call.Args,
		ExitCode: exitCode,
		Stderr:   stderr,
	}
}

func containsArg(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

package exec_test

import (
	"context"
	"testing"
	"time"

	"github.com/example42/sai-suite-sub001/exec"
)

// recordingExecutor captures the configuration applied before Run.
type recordingExecutor struct {
	env     map[string]string
	dir     string
	timeout time.Duration
	secrets []string
	args    []string
}

func (r *recordingExecutor) WithEnv(env map[string]string) exec.Executor {
	r.env = env
	return r
}

func (r *recordingExecutor) WithDir(dir string) exec.Executor {
	r.dir = dir
	return r
}

func (r *recordingExecutor) WithContext(context.Context) exec.Executor { return r }

func (r *recordingExecutor) WithTimeout(d time.Duration) exec.Executor {
	r.timeout = d
	return r
}

func (r *recordingExecutor) WithInheritEnv() exec.Executor { return r }

func (r *recordingExecutor) WithSecrets(s ...string) exec.Executor {
	r.secrets = append(r.secrets, s...)
	return r
}

func (r *recordingExecutor) Run(args ...string) (*exec.Result, error) {
	r.args = args
	return &exec.Result{Stdout: "ok"}, nil
}

func (r *recordingExecutor) Clone() exec.Executor {
	c := *r
	return &c
}

func TestWrapperPrependsCommand(t *testing.T) {
	rec := &recordingExecutor{}
	git := exec.NewWrapper(rec, "git")

	_, err := git.
		WithEnv(map[string]string{"GIT_TERMINAL_PROMPT": "0"}).
		WithDir("/cache/repo").
		WithTimeout(time.Minute).
		WithSecrets("token").
		Run("fetch", "origin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"git", "fetch", "origin"}
	if len(rec.args) != len(want) {
		t.Fatalf("expected args %v, got %v", want, rec.args)
	}
	for i := range want {
		if rec.args[i] != want[i] {
			t.Errorf("arg %d: expected %q, got %q", i, want[i], rec.args[i])
		}
	}
	if rec.dir != "/cache/repo" {
		t.Errorf("expected dir to be forwarded, got %q", rec.dir)
	}
	if rec.timeout != time.Minute {
		t.Errorf("expected timeout to be forwarded, got %v", rec.timeout)
	}
	if rec.env["GIT_TERMINAL_PROMPT"] != "0" {
		t.Errorf("expected env to be forwarded, got %v", rec.env)
	}
	if len(rec.secrets) != 1 || rec.secrets[0] != "token" {
		t.Errorf("expected secrets to be forwarded, got %v", rec.secrets)
	}
	if git.Name() != "git" {
		t.Errorf("expected Name() git, got %q", git.Name())
	}
}

func TestWrapperWithRealCommand(t *testing.T) {
	echo := exec.NewWrapper(exec.New(), "echo")
	result, err := echo.Run("saidata")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Stdout != "saidata\n" {
		t.Errorf("expected 'saidata\\n', got %q", result.Stdout)
	}
}

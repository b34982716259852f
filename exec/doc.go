// Package exec runs external programs from an argument vector, never a
// shell string.
//
// The git transport drives the git and gpg binaries through this package.
// Command is the os/exec backed implementation of Executor; tests substitute
// their own Executor to script results.
//
// # Basic Usage
//
//	git := exec.NewWrapper(exec.New(exec.WithInheritEnv()), "git")
//	res, err := git.
//		WithDir(repoDir).
//		WithTimeout(2 * time.Minute).
//		Run("fetch", "origin")
//
// Settings passed to New are global. Settings chained before Run are local
// and are reset after the run completes.
//
// # Secrets
//
// Credentials reach child processes through the environment only. Values
// registered with WithSecrets are replaced by "***" in the returned Result
// and in any *ExecError, so errors can be logged safely:
//
//	res, err := git.
//		WithEnv(map[string]string{"GIT_PASSWORD": token}).
//		WithSecrets(token).
//		Run("clone", "--", url, dir)
//
// # Errors
//
// A failed run returns *ExecError with the exit code and captured output.
// TimedOut is set when the run was killed by its timeout.
package exec

package git

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/example42/sai-suite-sub001/errors"
	"github.com/example42/sai-suite-sub001/transport"
)

// defaultTokenUser is the username paired with a bare token over https.
const defaultTokenUser = "x-access-token"

// askpassScript answers git's username and password prompts from the
// environment so secrets never touch argv or the script itself.
const askpassScript = `#!/bin/sh
case "$1" in
  Username*|username*) printf '%s\n' "$GIT_USERNAME" ;;
  *) printf '%s\n' "$GIT_PASSWORD" ;;
esac
`

// authEnv is the environment handed to one git invocation.
type authEnv struct {
	vars    map[string]string
	secrets []string
	cleanup func()
}

func (a *authEnv) close() {
	if a != nil && a.cleanup != nil {
		a.cleanup()
	}
}

// prepareAuth translates credentials into environment variables. The
// returned authEnv must be closed once git has finished.
func (t *Transport) prepareAuth(creds *transport.Credentials) (*authEnv, error) {
	env := &authEnv{
		vars:    map[string]string{"GIT_TERMINAL_PROMPT": "0"},
		cleanup: func() {},
	}
	if creds.Empty() {
		return env, nil
	}
	env.secrets = creds.Secrets()

	switch creds.Type {
	case transport.AuthSSHKey:
		cmd, err := t.sshCommand(creds)
		if err != nil {
			return nil, err
		}
		env.vars["GIT_SSH_COMMAND"] = cmd

	case transport.AuthToken, transport.AuthBasic:
		user, pass := creds.Username, creds.Password
		if creds.Type == transport.AuthToken {
			pass = creds.Token
			if user == "" {
				user = defaultTokenUser
			}
		}
		script, cleanup, err := t.writeAskpass()
		if err != nil {
			return nil, err
		}
		env.vars["GIT_ASKPASS"] = script
		env.vars["GIT_USERNAME"] = user
		env.vars["GIT_PASSWORD"] = pass
		env.cleanup = cleanup

	default:
		return nil, errors.Newf(errors.CodeInvalidConfig, "unsupported auth type %q", creds.Type)
	}

	return env, nil
}

// sshCommand builds GIT_SSH_COMMAND for a key file. git passes the value to
// a shell, so every path is single-quoted.
func (t *Transport) sshCommand(creds *transport.Credentials) (string, error) {
	keyPath := creds.SSHKeyPath
	if strings.ContainsAny(keyPath, "\x00\n\r") {
		return "", errors.New(errors.CodeSecurity, "SSH key path contains control characters")
	}
	info, err := os.Stat(keyPath)
	if err != nil {
		return "", errors.Wrapf(err, errors.CodeUnauthorized, "SSH key %s is not readable", keyPath)
	}
	if info.Mode().Perm()&0o077 != 0 {
		t.logger.Warn("SSH key is accessible by other users; ssh may refuse it",
			zap.String("path", keyPath),
			zap.String("mode", info.Mode().Perm().String()))
	}

	parts := []string{
		"ssh",
		"-i", shellQuote(keyPath),
		"-o", "IdentitiesOnly=yes",
		"-o", "BatchMode=yes",
	}
	if creds.KnownHostsPath != "" {
		if strings.ContainsAny(creds.KnownHostsPath, "\x00\n\r") {
			return "", errors.New(errors.CodeSecurity, "known_hosts path contains control characters")
		}
		parts = append(parts,
			"-o", shellQuote("UserKnownHostsFile="+creds.KnownHostsPath),
			"-o", "StrictHostKeyChecking=yes")
	} else {
		parts = append(parts, "-o", "StrictHostKeyChecking=accept-new")
	}
	return strings.Join(parts, " "), nil
}

func (t *Transport) writeAskpass() (string, func(), error) {
	dir, err := os.MkdirTemp(t.tempDir, "sai-askpass-")
	if err != nil {
		return "", nil, errors.Wrap(err, errors.CodePermission, "failed to create askpass directory")
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			t.logger.Debug("failed to remove askpass helper", zap.String("dir", dir), zap.Error(err))
		}
	}

	path := filepath.Join(dir, "askpass.sh")
	if err := os.WriteFile(path, []byte(askpassScript), 0o700); err != nil {
		cleanup()
		return "", nil, errors.Wrap(err, errors.CodePermission, "failed to write askpass helper")
	}
	return path, cleanup, nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

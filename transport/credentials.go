package transport

// AuthType names a credential scheme. It is persisted in cache metadata,
// so values must stay stable.
type AuthType string

const (
	AuthNone   AuthType = ""
	AuthSSHKey AuthType = "ssh_key"
	AuthToken  AuthType = "token"
	AuthBasic  AuthType = "basic"
)

// Credentials are supplied by a credential store for one repository URL.
// They are only ever handed to subprocess environments and HTTP headers.
type Credentials struct {
	Type AuthType

	// Username is used for basic auth. Token auth defaults it to
	// "x-access-token" for git over https.
	Username string
	Password string
	Token    string

	// SSHKeyPath points at a private key file for AuthSSHKey.
	SSHKeyPath string

	// KnownHostsPath optionally pins host keys for AuthSSHKey.
	KnownHostsPath string
}

// TypeOf returns the auth type of c, treating nil as AuthNone.
func TypeOf(c *Credentials) AuthType {
	if c == nil {
		return AuthNone
	}
	return c.Type
}

// Secrets lists the values that must be redacted from logs and output.
func (c *Credentials) Secrets() []string {
	if c == nil {
		return nil
	}
	var out []string
	for _, s := range []string{c.Password, c.Token} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Empty reports whether c carries no usable secret.
func (c *Credentials) Empty() bool {
	if c == nil {
		return true
	}
	switch c.Type {
	case AuthSSHKey:
		return c.SSHKeyPath == ""
	case AuthToken:
		return c.Token == ""
	case AuthBasic:
		return c.Username == "" && c.Password == ""
	default:
		return true
	}
}

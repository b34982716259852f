package exec

import "time"

// config separates global settings (set at creation) from local settings
// (set per run, reset afterwards).
type config struct {
	globalEnv        map[string]string
	globalDir        string
	globalInheritEnv bool
	globalTimeout    time.Duration

	localEnv        map[string]string
	localDir        string
	localInheritEnv *bool
	localTimeout    *time.Duration
	secrets         []string
}

func newConfig() *config {
	return &config{
		globalEnv: make(map[string]string),
		localEnv:  make(map[string]string),
	}
}

// clone copies global settings only.
func (c *config) clone() *config {
	clone := &config{
		globalEnv:        make(map[string]string, len(c.globalEnv)),
		globalDir:        c.globalDir,
		globalInheritEnv: c.globalInheritEnv,
		globalTimeout:    c.globalTimeout,
		localEnv:         make(map[string]string),
	}
	for k, v := range c.globalEnv {
		clone.globalEnv[k] = v
	}
	return clone
}

func (c *config) effectiveEnv() map[string]string {
	env := make(map[string]string, len(c.globalEnv)+len(c.localEnv))
	for k, v := range c.globalEnv {
		env[k] = v
	}
	for k, v := range c.localEnv {
		env[k] = v
	}
	return env
}

func (c *config) effectiveDir() string {
	if c.localDir != "" {
		return c.localDir
	}
	return c.globalDir
}

func (c *config) effectiveInheritEnv() bool {
	if c.localInheritEnv != nil {
		return *c.localInheritEnv
	}
	return c.globalInheritEnv
}

func (c *config) effectiveTimeout() time.Duration {
	if c.localTimeout != nil {
		return *c.localTimeout
	}
	return c.globalTimeout
}

func (c *config) resetLocal() {
	c.localEnv = make(map[string]string)
	c.localDir = ""
	c.localInheritEnv = nil
	c.localTimeout = nil
	c.secrets = nil
}

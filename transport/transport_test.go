package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example42/sai-suite-sub001/errors"
)

func TestFailedCarriesGuidance(t *testing.T) {
	err := errors.New(errors.CodeUnauthorized, "authentication failed")
	r := Failed(err, "clone failed")

	assert.False(t, r.Success)
	assert.Equal(t, "clone failed", r.Message)
	assert.NotEmpty(t, r.Details)
	assert.Equal(t, err, r.Error())
}

func TestSucceeded(t *testing.T) {
	r := Succeeded("/cache/saidata_abc", "cloned", "HEAD is not signed")
	assert.True(t, r.Success)
	assert.NoError(t, r.Error())
	assert.Equal(t, []string{"HEAD is not signed"}, r.Warnings)
}

func TestCredentials(t *testing.T) {
	var none *Credentials
	assert.True(t, none.Empty())
	assert.Equal(t, AuthNone, TypeOf(none))
	assert.Nil(t, none.Secrets())

	tok := &Credentials{Type: AuthToken, Token: "ghp_secret"}
	assert.False(t, tok.Empty())
	assert.Equal(t, []string{"ghp_secret"}, tok.Secrets())

	basic := &Credentials{Type: AuthBasic, Username: "me", Password: "pw"}
	assert.Equal(t, []string{"pw"}, basic.Secrets())

	assert.True(t, (&Credentials{Type: AuthSSHKey}).Empty())
	assert.Equal(t, "git", KindGit.String())
	assert.Equal(t, "tarball", KindTarball.String())
}

package cmd

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// fakeTokenServer issues a request token and then an access token.
func fakeTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		switch r.URL.Path {
		case "/+request-token":
			_, _ = w.Write([]byte("oauth_token=req&oauth_token_secret=reqsecret"))
		case "/+access-token":
			if r.PostForm.Get("oauth_signature") != "&reqsecret" {
				http.Error(w, "bad signature", http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte("oauth_token=acc&oauth_token_secret=accsecret"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setLoginInput(t *testing.T, s string) {
	t.Helper()
	orig := loginInput
	loginInput = strings.NewReader(s)
	t.Cleanup(func() { loginInput = orig })
}

func TestLogin_SavesCredentials(t *testing.T) {
	dir := testEnv(t)
	buf := captureOutput(t)
	srv := fakeTokenServer(t)
	viper.Set("launchpad.web_root", srv.URL)
	setLoginInput(t, "\n")
	loginForce = false

	require.NoError(t, loginRun())
	assert.Contains(t, buf.String(), srv.URL+"/+authorize-token?oauth_token=req")
	assert.Equal(t, "acc", viper.GetString("launchpad.oauth_token"))

	cfgPath := filepath.Join(dir, "config.yaml")
	info, err := os.Stat(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	var saved struct {
		Launchpad struct {
			ConsumerKey      string `yaml:"consumer_key"`
			OAuthToken       string `yaml:"oauth_token"`
			OAuthTokenSecret string `yaml:"oauth_token_secret"`
		} `yaml:"launchpad"`
	}
	require.NoError(t, yaml.Unmarshal(data, &saved))
	assert.Equal(t, "kanban", saved.Launchpad.ConsumerKey)
	assert.Equal(t, "acc", saved.Launchpad.OAuthToken)
	assert.Equal(t, "accsecret", saved.Launchpad.OAuthTokenSecret)
}

func TestLogin_RefusesExistingCredentials(t *testing.T) {
	testEnv(t)
	viper.Set("launchpad.oauth_token", "existing")
	loginForce = false

	err := loginRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exist")
}

func TestLogin_ForceReplaces(t *testing.T) {
	testEnv(t)
	captureOutput(t)
	srv := fakeTokenServer(t)
	viper.Set("launchpad.web_root", srv.URL)
	viper.Set("launchpad.oauth_token", "existing")
	setLoginInput(t, "")
	loginForce = true
	t.Cleanup(func() { loginForce = false })

	require.NoError(t, loginRun())
	assert.Equal(t, "acc", viper.GetString("launchpad.oauth_token"))
}

func TestLogin_DryRun(t *testing.T) {
	dir := testEnv(t)
	buf := captureOutput(t)
	dryRun = true
	ui.DryRun = true
	t.Cleanup(func() { dryRun = false })

	require.NoError(t, loginRun())
	assert.Contains(t, buf.String(), "Would request a Launchpad token")
	_, err := os.Stat(filepath.Join(dir, "config.yaml"))
	assert.True(t, os.IsNotExist(err))
}

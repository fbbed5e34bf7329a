package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/arserve/internal/certs"
)

func TestServeCmd_LoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "arserve.yaml")

	configYAML := `
listen: ":4443"
redirectListen: ""
webroot: /srv/demo
gzip: true
mimeTypes:
  glb: model/gltf-binary
`
	require.NoError(t, os.WriteFile(configPath, []byte(configYAML), 0o644))

	cmd := &ServeCmd{
		Listen:         ":8001",
		RedirectListen: ":8000",
		Webroot:        ".",
		Index:          "index.html",
		Config:         configPath,
	}

	require.NoError(t, cmd.loadConfigFile())

	assert.Equal(t, ":4443", cmd.Listen)
	// An explicit empty value disables the redirect listener
	assert.Empty(t, cmd.RedirectListen)
	assert.Equal(t, "/srv/demo", cmd.Webroot)
	// Unset in the file, so the flag value is kept
	assert.Equal(t, "index.html", cmd.Index)
	assert.True(t, cmd.Gzip)
	assert.Equal(t, "model/gltf-binary", cmd.MIMETypes["glb"])
}

func TestServeCmd_LoadConfigFileJSON(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "arserve.json")

	require.NoError(t, os.WriteFile(configPath, []byte(`{"webroot": "demo", "etag": true}`), 0o644))

	cmd := &ServeCmd{Webroot: ".", Config: configPath}

	require.NoError(t, cmd.loadConfigFile())

	assert.Equal(t, "demo", cmd.Webroot)
	assert.True(t, cmd.ETag)
}

func TestServeCmd_LoadConfigFileMissing(t *testing.T) {
	cmd := &ServeCmd{Config: filepath.Join(t.TempDir(), "nope.yaml")}

	err := cmd.loadConfigFile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestServeCmd_ServerConfigMergesMIMEOverrides(t *testing.T) {
	cmd := &ServeCmd{
		Webroot:   "demo",
		Index:     "index.html",
		MIMETypes: map[string]string{".GLB": "model/gltf-binary"},
	}

	cfg := cmd.serverConfig()

	assert.Equal(t, "demo", cfg.Webroot)
	assert.Equal(t, "model/gltf-binary", cfg.MIMETypes["glb"])
	// Defaults are retained alongside overrides
	assert.Equal(t, "text/javascript", cfg.MIMETypes["js"])
}

func TestServeCmd_MissingPairFailsBeforeListen(t *testing.T) {
	dir := t.TempDir()

	cmd := &ServeCmd{
		Listen:   "127.0.0.1:0",
		Webroot:  dir,
		Cert:     filepath.Join(dir, "cert.pem"),
		Key:      filepath.Join(dir, "key.pem"),
		AutoCert: false,
	}

	err := cmd.Run(context.Background(), &Globals{})
	require.Error(t, err)
	require.ErrorIs(t, err, certs.ErrMissingCertFile)
}

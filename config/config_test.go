package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigPaths(t *testing.T) {
	conf := DefaultConfig()
	assert.NotEmpty(t, conf.AppDir)
	assert.Equal(t, filepath.Join(conf.AppDir, "db", "fingerprints.db"), conf.DatabaseFile())
	assert.Equal(t, filepath.Join(conf.AppDir, "var", "EncryptedBackups"), conf.EncryptedMountDir())
}

func TestEnsureDirs(t *testing.T) {
	conf := DefaultConfig()
	conf.AppDir = filepath.Join(t.TempDir(), "state")

	conf, err := EnsureDirs(conf)
	require.NoError(t, err)
	assert.DirExists(t, conf.DatabaseDir())
	assert.DirExists(t, conf.EncryptedMountDir())
}

func TestScanPreset(t *testing.T) {
	conf := DefaultConfig()
	conf.Scans = map[string]Scan{
		"photos": {Label: "Photos", Path: "/data/photos", Filter: `\.(jpg|nef)$`},
	}

	scan, err := conf.ScanPreset("photos")
	require.NoError(t, err)
	assert.Equal(t, "/data/photos", scan.Path)

	_, err = conf.ScanPreset("music")
	require.Error(t, err)
}

func TestResolveAlgorithm(t *testing.T) {
	// Display name resolves to the CLI token.
	token, err := ResolveAlgorithm(VeracryptAlgorithms, "AES(Twofish(Serpent))")
	require.NoError(t, err)
	assert.Equal(t, "aes-twofish-serpent", token)

	// A CLI token passes through unchanged.
	token, err = ResolveAlgorithm(VeracryptHashAlgorithms, "whirlpool")
	require.NoError(t, err)
	assert.Equal(t, "whirlpool", token)

	_, err = ResolveAlgorithm(VeracryptAlgorithms, "rot13")
	require.Error(t, err)
}

func TestDefaultsAreValid(t *testing.T) {
	_, err := ResolveAlgorithm(VeracryptAlgorithms, DefaultVeracryptAlgorithm)
	assert.NoError(t, err)
	_, err = ResolveAlgorithm(VeracryptHashAlgorithms, DefaultVeracryptHashAlgorithm)
	assert.NoError(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gallery.config.json")
	s, err := NewStore(path)
	require.NoError(t, err)
	return s
}

func TestNewStoreBootstrapsDefaults(t *testing.T) {
	s := newTestStore(t)
	_, err := os.Stat(s.Path())
	require.NoError(t, err, "default config file should be written")

	cfg := s.Current()
	assert.True(t, cfg.Settings.ShuffleMedia)
	assert.Equal(t, 10, cfg.Settings.MediaPageSize)
	assert.Equal(t, "none", cfg.Settings.TunnelProvider)
	assert.Equal(t, 5000, cfg.Settings.TunnelLocalPort)
}

func TestSaveMergesSections(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Save([]byte(`{"python_config":{"SESSION_PASSWORD":"hunter2","MEDIA_PAGE_SIZE":25},"javascript_config":{"theme":"dark"}}`))
	require.NoError(t, err)

	cfg := s.Current()
	assert.Equal(t, "hunter2", cfg.Settings.SessionPassword)
	assert.Equal(t, 25, cfg.Settings.MediaPageSize)
	assert.True(t, cfg.Settings.ShuffleMedia, "unspecified keys keep their value")
	assert.Equal(t, "dark", cfg.UI["theme"])

	// A second store reading the same file sees the persisted values.
	reloaded, err := NewStore(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "hunter2", reloaded.Settings().SessionPassword)
	assert.Equal(t, "dark", reloaded.Current().UI["theme"])
}

func TestSaveRejectsInvalidValues(t *testing.T) {
	s := newTestStore(t)

	cases := map[string]string{
		"bad port":     `{"python_config":{"TUNNEL_LOCAL_PORT":70000}}`,
		"bad provider": `{"python_config":{"TUNNEL_PROVIDER":"ngrok"}}`,
		"bad page":     `{"python_config":{"MEDIA_PAGE_SIZE":0}}`,
		"not json":     `{"python_config":`,
		"empty":        ``,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.Save([]byte(body))
			assert.Error(t, err)
		})
	}
	assert.Equal(t, 5000, s.Settings().TunnelLocalPort, "rejected saves leave live config untouched")
}

func TestLoadKeepsLastGoodConfigOnParseError(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Save([]byte(`{"python_config":{"SHUFFLE_MEDIA":false}}`))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(s.Path(), []byte("{broken"), 0o600))
	cfg, err := s.Load()
	assert.Error(t, err)
	assert.False(t, cfg.Settings.ShuffleMedia)
}

func TestToMapUsesFrontendKeys(t *testing.T) {
	m, err := Defaults().ToMap()
	require.NoError(t, err)
	py, ok := m["python_config"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, py, "SESSION_PASSWORD")
	assert.Contains(t, m, "javascript_config")
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadParsesFullConfig(t *testing.T) {
	path := writeTempConfig(t, `
node: https://api.chainweb.com
mongo_uri: mongodb://localhost:27017
db: chainweb
events:
  - name: coin.TRANSFER
    chains: ["0", "1"]
    height: [1138000, null]
  - name: marmalade.token-policy-v1.TOKEN-MINT
    chains: ["2"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.chainweb.com", cfg.NodeURL)
	assert.Equal(t, "mongodb://localhost:27017", cfg.StoreURI)
	assert.Equal(t, "chainweb", cfg.DB)
	require.Len(t, cfg.Events, 2)
	assert.Equal(t, "coin.TRANSFER", cfg.Events[0].Name)
	assert.Equal(t, []string{"0", "1"}, cfg.Events[0].Chains)
	require.NotNil(t, cfg.Events[0].Height[0])
	assert.Equal(t, int64(1138000), *cfg.Events[0].Height[0])
	assert.Nil(t, cfg.Events[0].Height[1])
	assert.Nil(t, cfg.Events[1].Height[0])
}

func TestLoadRejectsMissingRequiredField(t *testing.T) {
	path := writeTempConfig(t, `
mongo_uri: mongodb://localhost:27017
db: chainweb
events:
  - name: coin.TRANSFER
    chains: ["0"]
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsEventWithNoChains(t *testing.T) {
	path := writeTempConfig(t, `
node: https://api.chainweb.com
mongo_uri: mongodb://localhost:27017
db: chainweb
events:
  - name: coin.TRANSFER
    chains: []
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsOutOfRangeChainID(t *testing.T) {
	path := writeTempConfig(t, `
node: https://api.chainweb.com
mongo_uri: mongodb://localhost:27017
db: chainweb
events:
  - name: coin.TRANSFER
    chains: ["20"]
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

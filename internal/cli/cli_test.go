package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-io/strata/internal/engine"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strata.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, `{
		"namespace": "prod",
		"region": "us-east-1",
		"vars": {"env": "prod"},
		"stacks": [
			{"name": "vpc", "namespace": "prod"},
			{"name": "app", "namespace": "prod", "requires": ["vpc"]}
		],
		"hooks": {
			"preDeploy": [{"path": "noop", "dataKey": "k", "args": {"a": "1"}}]
		}
	}`)

	m, err := loadManifest([]string{path})
	require.NoError(t, err)

	assert.Equal(t, "prod", m.Namespace)
	assert.Equal(t, "us-east-1", m.Region)
	assert.Equal(t, "prod", m.Vars["env"])
	require.Len(t, m.Stacks, 2)
	assert.Equal(t, []string{"vpc"}, m.Stacks[1].Requires)
	require.NotNil(t, m.Hooks)
	require.Len(t, m.Hooks.PreDeploy, 1)
	assert.Equal(t, "noop", m.Hooks.PreDeploy[0].Path)
}

func TestLoadManifest_FlagOverrides(t *testing.T) {
	path := writeManifest(t, `{"namespace": "prod", "region": "us-east-1", "stacks": []}`)

	flagNamespace = "staging"
	flagRegion = "eu-west-1"
	flagVars = map[string]string{"extra": "x"}
	defer func() {
		flagNamespace, flagRegion, flagVars = "", "", nil
	}()

	m, err := loadManifest([]string{path})
	require.NoError(t, err)
	assert.Equal(t, "staging", m.Namespace)
	assert.Equal(t, "eu-west-1", m.Region)
	assert.Equal(t, "x", m.Vars["extra"])
}

func TestLoadManifest_Errors(t *testing.T) {
	var cfgErr *engine.ConfigError

	_, err := loadManifest([]string{filepath.Join(t.TempDir(), "missing.json")})
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, 2, engine.ExitCode(err))

	_, err = loadManifest([]string{writeManifest(t, "not json")})
	require.ErrorAs(t, err, &cfgErr)

	_, err = loadManifest([]string{writeManifest(t, `{"stacks": []}`)})
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "namespace")
}

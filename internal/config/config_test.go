package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoadFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cubeflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
vena:
  endpoint: https://us2.vena.io
  user: apiuser
llm:
  deployment: gpt-4o
tool_timeout: 5s
max_steps: 8
archive:
  redact_patterns:
    - '\d{3}-\d{2}-\d{4}'
`), 0o644))

	cfg := Default()
	require.NoError(t, loadFile(path, &cfg))

	assert.Equal(t, "https://us2.vena.io", cfg.Vena.Endpoint)
	assert.Equal(t, "apiuser", cfg.Vena.User)
	assert.Equal(t, "gpt-4o", cfg.LLM.Deployment)
	assert.Equal(t, 5*time.Second, cfg.ToolTimeout)
	assert.Equal(t, 8, cfg.MaxSteps)
	assert.Equal(t, []string{`\d{3}-\d{2}-\d{4}`}, cfg.Archive.RedactPatterns)
	assert.Equal(t, ":8080", cfg.Addr, "unset keys keep defaults")
}

func TestLoadFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cubeflow.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"vena": {"endpoint": "https://ca3.vena.io"}, "addr": ":9090"}`), 0o644))

	cfg := Default()
	require.NoError(t, loadFile(path, &cfg))

	assert.Equal(t, "https://ca3.vena.io", cfg.Vena.Endpoint)
	assert.Equal(t, ":9090", cfg.Addr)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.Vena.Endpoint = "from-file"

	err := applyEnv(&cfg, lookupFrom(map[string]string{
		"VENA_ENDPOINT":         "https://us2.vena.io",
		"VENA_USER":             "u",
		"VENA_KEY":              "k",
		"LOCAL_MODEL_OVERRIDE":  "llama3",
		"CUBEFLOW_TOOL_TIMEOUT": "2s",
		"CUBEFLOW_MAX_STEPS":    "12",
		"OPENAI_API_VERSION":    "",
		"CUBEFLOW_ARCHIVE_KEY":  "c2VjcmV0",
	}))

	require.NoError(t, err)
	assert.Equal(t, "https://us2.vena.io", cfg.Vena.Endpoint)
	assert.Equal(t, "llama3", cfg.LLM.LocalModel)
	assert.Equal(t, 2*time.Second, cfg.ToolTimeout)
	assert.Equal(t, 12, cfg.MaxSteps)
	assert.Equal(t, "c2VjcmV0", cfg.Archive.EncryptionKey)
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnv_Invalid(t *testing.T) {
	cfg := Default()
	assert.Error(t, applyEnv(&cfg, lookupFrom(map[string]string{"CUBEFLOW_TOOL_TIMEOUT": "soon"})))
	assert.Error(t, applyEnv(&cfg, lookupFrom(map[string]string{"CUBEFLOW_MAX_STEPS": "many"})))
}

func TestValidate(t *testing.T) {
	err := Default().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VENA_ENDPOINT")
	assert.Contains(t, err.Error(), "VENA_USER")
	assert.Contains(t, err.Error(), "OPENAI_DEPLOYMENT_NAME")

	cfg := Default()
	cfg.Vena = Vena{Endpoint: "https://us2.vena.io", User: "u", Key: "k"}
	cfg.LLM = LLM{Endpoint: "https://x.openai.azure.com", APIVersion: "2024-06-01", Deployment: "gpt-4o"}
	assert.NoError(t, cfg.Validate())
}

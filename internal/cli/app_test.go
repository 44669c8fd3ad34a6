package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/cubeflow/internal/config"
	"github.com/aretw0/cubeflow/internal/testutils"
	"github.com/aretw0/cubeflow/pkg/adapters/memory"
	"github.com/aretw0/cubeflow/pkg/adapters/redis"
	"github.com/aretw0/cubeflow/pkg/domain"
	"github.com/aretw0/cubeflow/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakes() Options {
	return Options{
		LanguageModel: testutils.NewFakeLLM(
			testutils.Rule{Contains: testutils.OrchestrationPrompt, Reply: "MODEL_SELECTION"},
			testutils.Rule{Contains: testutils.PredictionPrompt, Reply: `[{"dimension": "Account", "members": [{"name": "Revenue"}]}]`},
			testutils.Rule{Contains: testutils.QueryPrompt, Reply: "dimension('Account': 'Revenue')"},
		),
		DataService: testutils.NewFoundation(),
	}
}

func TestNewApp_InvalidConfig(t *testing.T) {
	_, err := NewApp(config.Default(), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "VENA_ENDPOINT")
}

func TestNewApp_ConfiguredClients(t *testing.T) {
	cfg := config.Default()
	cfg.Vena = config.Vena{Endpoint: "https://vena.example", User: "u", Key: "k"}
	cfg.LLM.LocalModel = "llama3"

	app, err := NewApp(cfg, Options{})
	require.NoError(t, err)
	defer app.Close()

	assert.IsType(t, &memory.Store{}, app.Sessions.Store())
	assert.NotEmpty(t, app.Engine.Edges())
}

func TestNewApp_RunsAndRecordsMetrics(t *testing.T) {
	var ended []domain.Outcome
	opts := fakes()
	opts.Hooks = domain.LifecycleHooks{
		OnRunEnd: func(_ context.Context, tr *domain.Transcript) { ended = append(ended, tr.Outcome) },
	}

	app, err := NewApp(config.Default(), opts)
	require.NoError(t, err)

	tr, err := app.Sessions.Ask(context.Background(), "c1", "Revenue in my foundation model")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAnswered, tr.Outcome)
	assert.Equal(t, []domain.Outcome{domain.OutcomeAnswered}, ended)

	families, err := app.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	saved, err := app.Sessions.Transcript(context.Background(), tr.RunID)
	require.NoError(t, err)
	assert.Equal(t, "c1", saved.ConversationID)
}

func TestNewApp_Redis(t *testing.T) {
	s := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Redis.URL = "redis://" + s.Addr()
	cfg.Redis.TTL = time.Hour

	app, err := NewApp(cfg, fakes())
	require.NoError(t, err)
	defer app.Close()

	assert.IsType(t, &redis.Store{}, app.Sessions.Store())

	tr, err := app.Sessions.Ask(context.Background(), "c1", "Revenue in my foundation model")
	require.NoError(t, err)
	assert.True(t, s.Exists("cubeflow:run:"+tr.RunID))
}

func TestNewApp_ArchiveMiddlewares(t *testing.T) {
	cfg := config.Default()
	cfg.Archive.RedactPatterns = []string{`foundation`}
	cfg.Archive.EncryptionKey = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))

	app, err := NewApp(cfg, fakes())
	require.NoError(t, err)

	tr, err := app.Sessions.Ask(context.Background(), "", "Revenue in my foundation model")
	require.NoError(t, err)

	saved, err := app.Sessions.Transcript(context.Background(), tr.RunID)
	require.NoError(t, err)
	assert.Equal(t, "Revenue in my *** model", saved.State.UserQuery)
	assert.Empty(t, saved.Sealed)

	cfg.Archive.EncryptionKey = "not base64!"
	_, err = NewApp(cfg, fakes())
	assert.ErrorContains(t, err, "archive encryption key")
}

func TestNewIOHandler(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer f.Close()

	assert.IsType(t, &runner.JSONHandler{}, NewIOHandler(IOOptions{JSON: true, Out: f}))

	h, ok := NewIOHandler(IOOptions{Quiet: true, Out: f}).(*runner.TextHandler)
	require.True(t, ok)
	assert.True(t, h.Quiet)
	assert.Nil(t, h.Renderer, "files are not terminals")
}

func TestHandleExecutionError(t *testing.T) {
	assert.NoError(t, HandleExecutionError(nil))
	assert.NoError(t, HandleExecutionError(context.Canceled))
	boom := errors.New("boom")
	assert.Equal(t, boom, HandleExecutionError(boom))
}

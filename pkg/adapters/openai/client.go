// Package openai implements ports.LanguageModel on top of the OpenAI Go SDK.
//
// Three deployments are supported: Azure OpenAI (Azure AD through the environment
// credential, or an API key), any OpenAI-compatible endpoint with an API key, and
// a local model server such as Ollama.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	oai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
	"github.com/openai/openai-go/v3/option"

	"github.com/aretw0/cubeflow/pkg/domain"
)

// DefaultLocalBaseURL is where a local Ollama server exposes its OpenAI-compatible API.
const DefaultLocalBaseURL = "http://localhost:11434/v1"

// ErrNoChoices is returned when the service answers without any choice.
var ErrNoChoices = errors.New("completion returned no choices")

// CompletionError wraps any failure of a completion request.
type CompletionError struct {
	Model string
	Err   error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("error getting completion from %s: %v", e.Model, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// Config selects and configures the completion backend.
type Config struct {
	// Azure OpenAI, or OpenAI-compatible when only APIKey and Endpoint are set.
	Endpoint   string
	Deployment string
	APIVersion string
	APIKey     string

	// LocalModel, when set, overrides everything else and talks to LocalBaseURL.
	LocalModel   string
	LocalBaseURL string

	HTTPClient *http.Client
	// Options are appended to the SDK request options.
	Options []option.RequestOption
}

// Client sends chat completions. It is safe for concurrent use.
type Client struct {
	client oai.Client
	model  string
}

// New builds a client for the backend described by cfg.
func New(cfg Config) (*Client, error) {
	var opts []option.RequestOption
	var model string

	switch {
	case cfg.LocalModel != "":
		base := cfg.LocalBaseURL
		if base == "" {
			base = DefaultLocalBaseURL
		}
		opts = append(opts, option.WithAPIKey("localhost"), option.WithBaseURL(base))
		model = cfg.LocalModel

	case cfg.APIVersion == "" && cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
		if cfg.Endpoint != "" {
			opts = append(opts, option.WithBaseURL(cfg.Endpoint))
		}
		model = cfg.Deployment

	default:
		if cfg.Endpoint == "" || cfg.APIVersion == "" {
			return nil, fmt.Errorf("azure openai requires an endpoint and an api version")
		}
		opts = append(opts, azure.WithEndpoint(cfg.Endpoint, cfg.APIVersion))
		if cfg.APIKey != "" {
			opts = append(opts, azure.WithAPIKey(cfg.APIKey))
		} else {
			cred, err := azidentity.NewEnvironmentCredential(nil)
			if err != nil {
				return nil, fmt.Errorf("azure credential: %w", err)
			}
			opts = append(opts, azure.WithTokenCredential(cred))
		}
		model = cfg.Deployment
	}

	if model == "" {
		return nil, fmt.Errorf("a model or deployment name is required")
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	opts = append(opts, cfg.Options...)

	return &Client{client: oai.NewClient(opts...), model: model}, nil
}

// Model returns the model or deployment the client sends requests to.
func (c *Client) Model() string {
	return c.model
}

// Complete implements ports.LanguageModel.
func (c *Client) Complete(ctx context.Context, messages []domain.Message, temperature float64) (string, error) {
	params := oai.ChatCompletionNewParams{
		Model:       oai.ChatModel(c.model),
		Messages:    toParams(messages),
		Temperature: oai.Float(temperature),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", &CompletionError{Model: c.model, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &CompletionError{Model: c.model, Err: ErrNoChoices}
	}
	return resp.Choices[0].Message.Content, nil
}

func toParams(messages []domain.Message) []oai.ChatCompletionMessageParamUnion {
	out := make([]oai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			out = append(out, oai.SystemMessage(m.Content))
		case domain.RoleAssistant:
			out = append(out, oai.AssistantMessage(m.Content))
		default:
			out = append(out, oai.UserMessage(m.Content))
		}
	}
	return out
}

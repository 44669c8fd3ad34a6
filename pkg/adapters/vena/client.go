// Package vena implements ports.DataService over the Vena REST API.
package vena

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/cubeflow/pkg/domain"
)

const (
	defaultTimeout = 30 * time.Second
	searchLimit    = 500
	maxErrorBody   = 4 << 10
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("received status code %d: %s", e.StatusCode, e.Body)
}

// Client talks to a Vena tenant. It is safe for concurrent use.
type Client struct {
	endpoint   string
	authHeader string
	http       *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// New creates a client for endpoint (e.g. https://us2.vena.io) using an API user and key.
func New(endpoint, user, key string, opts ...Option) *Client {
	token := base64.StdEncoding.EncodeToString([]byte(user + ":" + key))
	c := &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		authHeader: "VenaBasic " + token,
		http:       &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type modelWire struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Desc string `json:"desc"`
}

type dimensionWire struct {
	ID             int    `json:"id"`
	Number         int    `json:"number"`
	Name           string `json:"name"`
	TypeDefinition struct {
		Type string `json:"type"`
	} `json:"typeDefinition"`
}

type memberWire struct {
	ID          flexibleID `json:"id"`
	Name        string     `json:"name"`
	Alias       string     `json:"alias"`
	NumChildren int        `json:"numChildren"`
}

// flexibleID accepts member ids sent either as JSON strings or numbers.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("member id must be a string or number: %s", b)
	}
	*f = flexibleID(n.String())
	return nil
}

type searchQuery struct {
	Name        string `json:"name"`
	Alias       string `json:"alias,omitempty"`
	DimensionID int    `json:"dimensionId"`
	ModelID     int    `json:"modelId"`
	Limit       int    `json:"limit"`
	Type        string `json:"type"`
}

// ListModels implements ports.DataService.
func (c *Client) ListModels(ctx context.Context) ([]domain.ModelInfo, error) {
	var wire []modelWire
	if err := c.getJSON(ctx, "/api/models/withDimensions", &wire); err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	models := make([]domain.ModelInfo, 0, len(wire))
	for _, m := range wire {
		models = append(models, domain.ModelInfo{ID: m.ID, Name: m.Name, Description: m.Desc})
	}
	return models, nil
}

// GetModel implements ports.DataService.
func (c *Client) GetModel(ctx context.Context, modelID int, modelName string) (*domain.ModelDetails, error) {
	var wire []dimensionWire
	path := fmt.Sprintf("/api/models/%d/dimensions?incMembers=false&incAttributes=false", modelID)
	if err := c.getJSON(ctx, path, &wire); err != nil {
		return nil, fmt.Errorf("get model %d: %w", modelID, err)
	}
	details := &domain.ModelDetails{ID: modelID, Name: modelName, Dimensions: make([]domain.Dimension, 0, len(wire))}
	for _, d := range wire {
		details.Dimensions = append(details.Dimensions, domain.Dimension{
			ID:             d.ID,
			Number:         d.Number,
			Name:           d.Name,
			TypeDefinition: d.TypeDefinition.Type,
		})
	}
	return details, nil
}

// Children implements ports.DataService.
func (c *Client) Children(ctx context.Context, modelID, dimensionNumber int, memberID string) ([]domain.HierarchyMember, error) {
	if memberID == "" {
		memberID = "root"
	}
	var wire []memberWire
	path := fmt.Sprintf("/api/models/%d/dimensions/%d/members/%s/children", modelID, dimensionNumber, url.PathEscape(memberID))
	if err := c.getJSON(ctx, path, &wire); err != nil {
		return nil, fmt.Errorf("children of member %s: %w", memberID, err)
	}
	members := make([]domain.HierarchyMember, 0, len(wire))
	for _, m := range wire {
		members = append(members, domain.HierarchyMember{
			ID:          string(m.ID),
			Name:        m.Name,
			Alias:       m.Alias,
			NumChildren: m.NumChildren,
		})
	}
	return members, nil
}

// SearchMembers implements ports.DataService.
func (c *Client) SearchMembers(ctx context.Context, modelID, dimensionID int, query string) (json.RawMessage, error) {
	body, err := json.Marshal([]searchQuery{
		{Name: query, Alias: query, DimensionID: dimensionID, ModelID: modelID, Limit: searchLimit, Type: "MEMBER"},
		{Name: query, DimensionID: dimensionID, ModelID: modelID, Limit: searchLimit, Type: "ATTRIBUTE"},
	})
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/search/suggestions", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("search members: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("search members: %w", err)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("search members: response is not JSON")
	}
	return json.RawMessage(raw), nil
}

// ValidateQuery implements ports.DataService.
// Only 200 and 204 count as a valid query; any other status is a *StatusError
// carrying the service's message.
func (c *Client) ValidateQuery(ctx context.Context, modelID int, query string) (domain.QueryValidation, error) {
	path := fmt.Sprintf("/api/models/%d/mql/validate", modelID)
	resp, err := c.do(ctx, http.MethodPost, path, "text/plain", strings.NewReader(query))
	if err != nil {
		return domain.QueryValidation{}, fmt.Errorf("validate query: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.QueryValidation{}, fmt.Errorf("validate query: %w",
			&StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))})
	}
	return domain.QueryValidation{Valid: true, Message: "MQL is valid"}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do sends the request and turns any non-2xx answer into a *StatusError.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	return resp, nil
}

// String describes the client for logs without leaking credentials.
func (c *Client) String() string {
	return "vena(" + c.endpoint + ")"
}

// Package httpapi implements the generation service over JSON HTTP providers.
//
// Providers are declared in a YAML config file and routed by node type. A
// submit either returns the finished result directly (HTTP 200) or a task
// handle to poll (HTTP 202); job status is read from the provider's status
// endpoint until the job reaches a terminal state.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/atelierhq/atelier/pkg/config"
	"github.com/atelierhq/atelier/pkg/models"
	"github.com/atelierhq/atelier/pkg/protocol"
)

var (
	// ErrNoProvider is returned when no configured provider serves a node type.
	ErrNoProvider = errors.New("no provider configured for node type")
	// ErrUnknownTask is returned when a task ID has no provider on record.
	ErrUnknownTask = errors.New("unknown task")
	// ErrProviderStatus is returned when a provider answers with an unexpected HTTP status.
	ErrProviderStatus = errors.New("unexpected provider status")
)

// maxErrorBodyBytes caps how much of a provider error body ends up in logs
// and error messages.
const maxErrorBodyBytes = 512

// Service routes generation requests to configured HTTP providers.
type Service struct {
	config config.ProvidersConfig
	client *http.Client
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]string // task ID -> provider name
}

// NewService creates an HTTP-backed generation service from provider config.
// The config must already be validated.
func NewService(cfg config.ProvidersConfig, logger *slog.Logger) *Service {
	return &Service{
		config:  cfg,
		client:  &http.Client{},
		logger:  logger.With("module", "httpapi"),
		pending: make(map[string]string),
	}
}

type submitResponse struct {
	ResultURI string `json:"result_uri,omitempty"`
	TaskID    string `json:"task_id,omitempty"`
}

// SubmitJob posts the request to the provider routed for the node type.
// A 200 response carries the result directly; a 202 response carries a task
// handle that GetJobStatus polls later.
func (s *Service) SubmitJob(ctx context.Context, nodeType models.NodeType, req *protocol.GenerationRequest) (*protocol.SubmitResult, error) {
	provider, ok := s.config.ProviderFor(string(nodeType))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoProvider, nodeType)
	}

	path, ok := provider.SubmitPath(string(nodeType))
	if !ok {
		return nil, fmt.Errorf("%w: provider '%s' has no submit path for %s", ErrNoProvider, provider.Name, nodeType)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode generation request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, provider.Timeout())
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, joinURL(provider.BaseURL, path), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	setAuth(httpReq, provider)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("provider '%s' request failed: %w", provider.Name, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, s.statusError(provider.Name, resp)
	}

	var submitted submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		return nil, fmt.Errorf("provider '%s' returned undecodable response: %w", provider.Name, err)
	}

	if submitted.TaskID != "" {
		s.rememberTask(submitted.TaskID, provider.Name)
		s.logger.DebugContext(ctx, "generation job accepted",
			"provider", provider.Name, "node_type", nodeType, "task_id", submitted.TaskID)

		return &protocol.SubmitResult{TaskID: submitted.TaskID}, nil
	}

	if submitted.ResultURI == "" {
		return nil, fmt.Errorf("%w: provider '%s' returned neither result_uri nor task_id", ErrProviderStatus, provider.Name)
	}

	return &protocol.SubmitResult{ResultURI: submitted.ResultURI}, nil
}

// GetJobStatus polls the provider that accepted the task. Terminal statuses
// release the task-to-provider mapping.
func (s *Service) GetJobStatus(ctx context.Context, taskID string) (*protocol.JobStatus, error) {
	providerName, ok := s.lookupTask(taskID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}

	provider, ok := s.config.Provider(providerName)
	if !ok {
		return nil, fmt.Errorf("%w: provider '%s' no longer configured", ErrUnknownTask, providerName)
	}

	ctx, cancel := context.WithTimeout(ctx, provider.Timeout())
	defer cancel()

	url := joinURL(provider.BaseURL, provider.StatusPath) + "/" + taskID

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	setAuth(httpReq, provider)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("provider '%s' request failed: %w", provider.Name, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, s.statusError(provider.Name, resp)
	}

	var status protocol.JobStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("provider '%s' returned undecodable status: %w", provider.Name, err)
	}

	if status.Status.IsTerminal() {
		s.forgetTask(taskID)
	}

	return &status, nil
}

func (s *Service) statusError(providerName string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	detail := strings.TrimSpace(string(body))

	if detail == "" {
		return fmt.Errorf("%w: provider '%s' returned %d", ErrProviderStatus, providerName, resp.StatusCode)
	}

	return fmt.Errorf("%w: provider '%s' returned %d: %s", ErrProviderStatus, providerName, resp.StatusCode, detail)
}

func (s *Service) rememberTask(taskID, providerName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[taskID] = providerName
}

func (s *Service) lookupTask(taskID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, ok := s.pending[taskID]

	return name, ok
}

func (s *Service) forgetTask(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, taskID)
}

func setAuth(req *http.Request, provider config.ProviderConfig) {
	if key := provider.APIKey(); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
}

func joinURL(baseURL, path string) string {
	return strings.TrimSuffix(baseURL, "/") + path
}

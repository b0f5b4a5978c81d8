package glassflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/SOLUCIONESSYCOM/glassflow_demo/src/observability"
)

const apiPrefix = "/api/v1"

type Client struct {
	baseURL      string
	httpClient   *http.Client
	logger       observability.Logger
	pollInterval time.Duration
	maxPoll      time.Duration
}

func NewClient(host string, timeout time.Duration, logger observability.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:      strings.TrimRight(host, "/") + apiPrefix,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
		pollInterval: 500 * time.Millisecond,
		maxPoll:      5 * time.Second,
	}
}

func (c *Client) WithPollInterval(interval time.Duration) *Client {
	if interval > 0 {
		c.pollInterval = interval
	}
	return c
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

func (c *Client) ListPipelines(ctx context.Context) ([]PipelineSummary, error) {
	var pipelines []PipelineSummary
	if err := c.do(ctx, http.MethodGet, "/pipeline", nil, &pipelines); err != nil {
		return nil, err
	}
	return pipelines, nil
}

func (c *Client) GetPipeline(ctx context.Context, id string) (*PipelineSummary, error) {
	var pipeline PipelineSummary
	if err := c.do(ctx, http.MethodGet, "/pipeline/"+url.PathEscape(id), nil, &pipeline); err != nil {
		return nil, err
	}
	if pipeline.ID == "" {
		pipeline.ID = id
	}
	return &pipeline, nil
}

// CreatePipeline envía la configuración tal cual fue leída del archivo.
// La API responde 403 cuando ya hay un pipeline (id repetido o cupo de uno en docker).
func (c *Client) CreatePipeline(ctx context.Context, raw []byte) error {
	err := c.do(ctx, http.MethodPost, "/pipeline", raw, nil)

	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusForbidden || apiErr.StatusCode == http.StatusConflict) {
		return fmt.Errorf("%w: %w", ErrPipelineAlreadyExists, apiErr)
	}

	return err
}

func (c *Client) TerminatePipeline(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/pipeline/"+url.PathEscape(id)+"/terminate", nil, nil)
}

func (c *Client) DeletePipeline(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/pipeline/"+url.PathEscape(id), nil, nil)
}

// RunningPipeline devuelve el id del pipeline activo o ErrPipelineNotFound.
func (c *Client) RunningPipeline(ctx context.Context) (string, error) {
	pipelines, err := c.ListPipelines(ctx)
	if err != nil {
		return "", err
	}

	for _, p := range pipelines {
		if p.Active() {
			return p.ID, nil
		}
	}

	return "", ErrPipelineNotFound
}

// WaitForStatus consulta el pipeline hasta que alcance alguno de los estados pedidos.
// Un pipeline que desaparece mientras se espera cuenta como detenido.
func (c *Client) WaitForStatus(ctx context.Context, id string, statuses ...string) (string, error) {
	for attempt := 0; ; attempt++ {
		pipeline, err := c.GetPipeline(ctx, id)
		switch {
		case errors.Is(err, ErrPipelineNotFound):
			return StatusStopped, nil
		case err != nil:
			return "", err
		case slices.Contains(statuses, string(pipeline.Status)):
			return string(pipeline.Status), nil
		}

		delay := c.calculateBackoff(attempt)
		c.logger.Debug(ctx, "Esperando estado del pipeline", "pipeline_id", id,
			"status", string(pipeline.Status), "delay", delay.String())

		select {
		case <-ctx.Done():
			return string(pipeline.Status), fmt.Errorf("wait for pipeline %s status %v: %w", id, statuses, ctx.Err())
		case <-time.After(delay):
		}
	}
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	delay := c.pollInterval
	for i := 0; i < attempt && delay < c.maxPoll; i++ {
		delay *= 2
	}
	return min(delay, c.maxPoll)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s %s: %v", ErrNotReachable, method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response %s %s: %w", method, path, err)
	}

	c.logger.Trace(ctx, "GlassFlow API", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, payload)
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response %s %s: %w", method, path, err)
	}

	return nil
}

func decodeError(statusCode int, payload []byte) error {
	apiErr := &APIError{}
	if err := json.Unmarshal(payload, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(payload))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(statusCode)
		}
	}
	apiErr.StatusCode = statusCode

	if statusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrPipelineNotFound, apiErr)
	}

	return apiErr
}

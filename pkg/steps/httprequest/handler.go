// Package httprequest calls an external service as an action step.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/canvex/canvex/pkg/protocol"
	"github.com/canvex/canvex/pkg/template"
)

const defaultTimeout = 30 * time.Second

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() string {
	return "http_request"
}

func (f *Factory) Create(config map[string]any) (protocol.StepHandler, error) {
	url, _ := config["url"].(string)
	if url == "" {
		return nil, errors.New("http_request step requires a url")
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	body, _ := config["body"].(string)

	headers := make(map[string]string)
	if raw, ok := config["headers"].(map[string]any); ok {
		for key, value := range raw {
			if str, ok := value.(string); ok {
				headers[key] = str
			}
		}
	}

	return &Handler{
		url:     url,
		method:  strings.ToUpper(method),
		body:    body,
		headers: headers,
		client:  &http.Client{Timeout: defaultTimeout},
	}, nil
}

type Handler struct {
	url     string
	method  string
	body    string
	headers map[string]string
	client  *http.Client
}

func (h *Handler) Execute(ctx context.Context, stepCtx protocol.StepContext, logger *slog.Logger) (map[string]any, error) {
	url := h.url
	if template.NeedsTemplating(url) {
		rendered, err := template.RenderWithContext(url, stepCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to render url: %w", err)
		}

		url = fmt.Sprint(rendered)
	}

	body := h.body
	if template.NeedsTemplating(body) {
		rendered, err := template.RenderWithContext(body, stepCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to render body: %w", err)
		}

		encoded, err := json.Marshal(rendered)
		if err != nil {
			return nil, err
		}

		body = string(encoded)
	}

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	request, err := http.NewRequestWithContext(ctx, h.method, url, reader)
	if err != nil {
		return nil, err
	}

	for key, value := range h.headers {
		request.Header.Set(key, value)
	}

	if body != "" && request.Header.Get("Content-Type") == "" {
		request.Header.Set("Content-Type", "application/json")
	}

	logger.InfoContext(ctx, "Executing HTTP request", "method", h.method, "url", url)

	response, err := h.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("http request to %s failed: %w", url, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}

	output := map[string]any{
		"status_code": response.StatusCode,
		"url":         url,
	}

	var decoded any
	if err := json.Unmarshal(payload, &decoded); err == nil {
		output["body"] = decoded
	} else {
		output["body"] = string(payload)
	}

	if response.StatusCode >= http.StatusBadRequest {
		return output, fmt.Errorf("http request to %s returned status %d", url, response.StatusCode)
	}

	return output, nil
}

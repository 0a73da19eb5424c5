package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client клиент модельного сервера с протоколом KServe v2 (Open Inference Protocol).
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient создаёт клиент с таймаутом на запрос.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// InferInput входной тензор запроса.
type InferInput struct {
	Name     string `json:"name"`
	Shape    []int  `json:"shape"`
	Datatype string `json:"datatype"`
	Data     any    `json:"data"`
}

// InferOutput выходной тензор ответа, данные развёрнуты построчно.
type InferOutput struct {
	Name     string    `json:"name"`
	Shape    []int     `json:"shape"`
	Datatype string    `json:"datatype"`
	Data     []float64 `json:"data"`
}

type requestedOutput struct {
	Name string `json:"name"`
}

type inferRequest struct {
	Inputs  []InferInput      `json:"inputs"`
	Outputs []requestedOutput `json:"outputs,omitempty"`
}

type inferResponse struct {
	ModelName string        `json:"model_name"`
	Outputs   []InferOutput `json:"outputs"`
}

// TensorMetadata описание тензора в метаданных модели.
type TensorMetadata struct {
	Name     string `json:"name"`
	Datatype string `json:"datatype"`
	Shape    []int  `json:"shape"`
}

// Metadata метаданные модели.
type Metadata struct {
	Name    string           `json:"name"`
	Inputs  []TensorMetadata `json:"inputs"`
	Outputs []TensorMetadata `json:"outputs"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Ready проверяет, что модель загружена на сервере.
func (c *Client) Ready(ctx context.Context, model string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.modelURL(model, "ready"), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("readiness check %s: %w", model, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model %s is not ready: status %d", model, resp.StatusCode)
	}
	return nil
}

// Metadata возвращает описание входов и выходов модели.
func (c *Client) Metadata(ctx context.Context, model string) (*Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.modelURL(model, ""), nil)
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := c.do(req, &meta); err != nil {
		return nil, fmt.Errorf("metadata %s: %w", model, err)
	}
	return &meta, nil
}

// Infer выполняет прямой проход. Пустой outputs означает все выходы модели.
func (c *Client) Infer(ctx context.Context, model string, inputs []InferInput, outputs ...string) (map[string]InferOutput, error) {
	body := inferRequest{Inputs: inputs}
	for _, name := range outputs {
		body.Outputs = append(body.Outputs, requestedOutput{Name: name})
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.modelURL(model, "infer"), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp inferResponse
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("infer %s: %w", model, err)
	}

	result := make(map[string]InferOutput, len(resp.Outputs))
	for _, out := range resp.Outputs {
		result[out.Name] = out
	}
	for _, name := range outputs {
		if _, ok := result[name]; !ok {
			return nil, fmt.Errorf("infer %s: output %q missing in response", model, name)
		}
	}
	return result, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) modelURL(model, action string) string {
	u := c.baseURL + "/v2/models/" + url.PathEscape(model)
	if action != "" {
		u += "/" + action
	}
	return u
}

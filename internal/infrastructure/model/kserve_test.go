package model

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"radiology-bot/internal/domain/entity"
)

// fakeServer модельный сервер с фиксированными ответами.
type fakeServer struct {
	t        *testing.T
	ready    map[string]bool
	metadata map[string]Metadata
	infer    func(model string, req inferRequest) (inferResponse, int)
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v2/models/")
	parts := strings.SplitN(path, "/", 2)
	model := parts[0]

	switch {
	case len(parts) == 2 && parts[1] == "ready":
		if f.ready[model] {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	case len(parts) == 1 && r.Method == http.MethodGet:
		meta, ok := f.metadata[model]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		require.NoError(f.t, json.NewEncoder(w).Encode(meta))
	case len(parts) == 2 && parts[1] == "infer":
		var req inferRequest
		body, err := io.ReadAll(r.Body)
		require.NoError(f.t, err)
		require.NoError(f.t, json.Unmarshal(body, &req))
		resp, status := f.infer(model, req)
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":"model crashed"}`))
			return
		}
		require.NoError(f.t, json.NewEncoder(w).Encode(resp))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSettings(url string) Settings {
	return Settings{
		Backend:       BackendKServe,
		KServeURL:     url,
		Timeout:       time.Second,
		Small:         "densenet",
		Large:         "resnet",
		Autoencoder:   "autoencoder",
		Attention:     "rad-dino",
		Activation:    "densenet-gradcam",
		SmallSize:     4,
		LargeSize:     8,
		AttentionSize: 6,
		Labels:        []string{"A", "B", "C"},
	}
}

func TestLoadKServe(t *testing.T) {
	srv := &fakeServer{
		t: t,
		ready: map[string]bool{
			"densenet": true, "autoencoder": true, "rad-dino": true, "densenet-gradcam": true,
		},
		metadata: map[string]Metadata{
			"rad-dino": {Name: "rad-dino", Outputs: []TensorMetadata{
				{Name: "attentions.10"}, {Name: "last_hidden_state"}, {Name: "attentions.2"},
			}},
		},
	}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	models := LoadKServe(context.Background(), newSettings(ts.URL), discardLogger())
	require.NotNil(t, models.Small)
	require.Nil(t, models.Large)
	require.NotNil(t, models.Autoencoder)
	require.NotNil(t, models.Attention)
	require.NotNil(t, models.Activation)

	require.Equal(t, []string{"attentions.2", "attentions.10"}, models.Attention.(*kserveAttention).outputs)
	require.Equal(t, 4, models.Small.InputSize())
	require.Equal(t, "densenet", models.Small.Name())
}

func TestClassifier_Logits(t *testing.T) {
	srv := &fakeServer{t: t, infer: func(model string, req inferRequest) (inferResponse, int) {
		require.Equal(t, "densenet", model)
		require.Len(t, req.Inputs, 1)
		require.Equal(t, "input", req.Inputs[0].Name)
		require.Equal(t, "FP32", req.Inputs[0].Datatype)
		require.Equal(t, []int{1, 1, 2, 2}, req.Inputs[0].Shape)
		return inferResponse{Outputs: []InferOutput{{Name: "logits", Shape: []int{1, 3}, Data: []float64{0.5, -1, 2}}}}, http.StatusOK
	}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	c := &kserveClassifier{client: NewClient(ts.URL, time.Second), name: "densenet", size: 2, labels: []string{"A", "B", "C"}}
	logits, err := c.Logits(context.Background(), entity.NewTensor(1, 1, 2, 2))
	require.NoError(t, err)
	require.Equal(t, []float64{0.5, -1, 2}, logits)

	c.labels = []string{"A"}
	_, err = c.Logits(context.Background(), entity.NewTensor(1, 1, 2, 2))
	require.Error(t, err)
}

func TestAutoencoder_Reconstruct(t *testing.T) {
	srv := &fakeServer{t: t, infer: func(string, inferRequest) (inferResponse, int) {
		return inferResponse{Outputs: []InferOutput{{Name: "output", Shape: []int{1, 1, 2, 2}, Data: []float64{1, 2, 3, 4}}}}, http.StatusOK
	}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	ae := &kserveAutoencoder{client: NewClient(ts.URL, time.Second), name: "autoencoder"}
	rec, err := ae.Reconstruct(context.Background(), entity.NewTensor(1, 1, 2, 2))
	require.NoError(t, err)
	require.Equal(t, []int{1, 1, 2, 2}, rec.Shape)
	require.Equal(t, []float32{1, 2, 3, 4}, rec.Data)

	_, err = ae.Reconstruct(context.Background(), entity.NewTensor(1, 1, 3, 3))
	require.Error(t, err)
}

func TestAttention_Attentions(t *testing.T) {
	srv := &fakeServer{t: t, infer: func(_ string, req inferRequest) (inferResponse, int) {
		require.Len(t, req.Outputs, 2)
		return inferResponse{Outputs: []InferOutput{
			{Name: "attentions.0", Shape: []int{1, 2, 2, 2}, Data: []float64{1, 0, 0, 1, 0.5, 0.5, 0.5, 0.5}},
			{Name: "attentions.1", Shape: []int{1, 1, 2, 2}, Data: []float64{0, 1, 1, 0}},
		}}, http.StatusOK
	}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	m := &kserveAttention{client: NewClient(ts.URL, time.Second), name: "rad-dino", size: 6, outputs: []string{"attentions.0", "attentions.1"}}
	layers, err := m.Attentions(context.Background(), entity.NewTensor(1, 3, 6, 6))
	require.NoError(t, err)
	require.Len(t, layers, 2)
	require.Equal(t, 2, layers[0].Heads)
	require.Equal(t, 2, layers[0].Tokens)
	require.Equal(t, 0.5, layers[0].At(1, 0, 1))
	require.Equal(t, 1, layers[1].Heads)
}

func TestActivation_SendsTargetClass(t *testing.T) {
	srv := &fakeServer{t: t, infer: func(_ string, req inferRequest) (inferResponse, int) {
		require.Len(t, req.Inputs, 2)
		require.Equal(t, "target_class", req.Inputs[1].Name)
		require.Equal(t, "INT64", req.Inputs[1].Datatype)
		require.Equal(t, []any{float64(7)}, req.Inputs[1].Data)
		return inferResponse{Outputs: []InferOutput{
			{Name: "activations", Shape: []int{1, 2, 1, 2}, Data: []float64{1, 2, 3, 4}},
			{Name: "gradients", Shape: []int{1, 2, 1, 2}, Data: []float64{0, 1, 0, 1}},
		}}, http.StatusOK
	}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	m := &kserveActivation{client: NewClient(ts.URL, time.Second), name: "densenet-gradcam", size: 4}
	trace, err := m.ActivationsAndGradients(context.Background(), entity.NewTensor(1, 1, 4, 4), 7)
	require.NoError(t, err)
	require.Equal(t, 2, trace.Channels)
	require.Equal(t, 1, trace.Height)
	require.Equal(t, 2, trace.Width)
	require.Equal(t, []float64{0, 1, 0, 1}, trace.Gradients)
}

func TestInfer_ServerError(t *testing.T) {
	srv := &fakeServer{t: t, infer: func(string, inferRequest) (inferResponse, int) {
		return inferResponse{}, http.StatusInternalServerError
	}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	_, err := NewClient(ts.URL, time.Second).Infer(context.Background(), "densenet", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "model crashed")
}

func TestLoad_UnknownBackend(t *testing.T) {
	_, err := Load(context.Background(), Settings{Backend: "tflite"}, discardLogger())
	require.Error(t, err)
}

func TestAttentionOutputs(t *testing.T) {
	meta := &Metadata{Outputs: []TensorMetadata{{Name: "attentions_3"}, {Name: "attentions_1"}, {Name: "pooler"}}}
	require.Equal(t, []string{"attentions_1", "attentions_3"}, attentionOutputs(meta))
}

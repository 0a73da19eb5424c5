package rest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	app "radiology-bot/internal/application"
	"radiology-bot/internal/domain/entity"
)

const testSecret = "test-secret"

type fakeCases struct {
	xrayErr error
	ecgErr  error
	objects map[string][]byte
	lastRaw []byte
	lastUID string
}

func (f *fakeCases) RunXRay(_ context.Context, uid string, raw []byte) (*app.XRayCase, error) {
	f.lastUID, f.lastRaw = uid, raw
	if f.xrayErr != nil {
		return nil, f.xrayErr
	}
	return &app.XRayCase{ID: "x-1", Report: &entity.XRayReport{
		Predictions: map[string]float64{"Cardiomegaly": 0.7},
		TopFinding:  "Cardiomegaly",
		Heatmap:     []byte("heat"),
		Consensus:   entity.ConsensusVerdict{Status: entity.ConsensusApproved},
	}}, nil
}

func (f *fakeCases) RunECG(_ context.Context, uid string, raw []byte) (*app.ECGCase, error) {
	f.lastUID, f.lastRaw = uid, raw
	if f.ecgErr != nil {
		return nil, f.ecgErr
	}
	return &app.ECGCase{ID: "e-1", Report: &entity.ECGReport{
		SamplingRate: 250,
		Metrics:      map[string]any{entity.MetricHeartRate: 72.0},
		Findings:     []string{"Normal Sinus Rhythm"},
	}}, nil
}

func (f *fakeCases) ListArchive(_ context.Context, uid string) ([]entity.StoredObject, error) {
	var out []entity.StoredObject
	for k, v := range f.objects {
		out = append(out, entity.StoredObject{Key: k, Size: int64(len(v))})
	}
	return out, nil
}

func (f *fakeCases) ArchiveSize(_ context.Context, uid string) (int64, error) {
	var total int64
	for _, v := range f.objects {
		total += int64(len(v))
	}
	return total, nil
}

func (f *fakeCases) Fetch(_ context.Context, uid, key string) ([]byte, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, entity.ErrObjectNotFound
	}
	return data, nil
}

func newTestRouter(cases Cases, secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(NewHandler(cases, "local", logger), NewAuthMiddleware(secret), logger)
}

func signToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub, "exp": exp.Unix()})
	s, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func multipartImage(t *testing.T, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="scan.png"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func do(t *testing.T, r http.Handler, req *http.Request, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var body map[string]any
	if json.Valid(rec.Body.Bytes()) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&fakeCases{}, testSecret)
	rec, body := do(t, r, httptest.NewRequest(http.MethodGet, "/health", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", body["status"])
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAuthentication(t *testing.T) {
	r := newTestRouter(&fakeCases{}, testSecret)

	rec, _ := do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil), "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	expired := signToken(t, "u1", time.Now().Add(-time.Hour))
	rec, _ = do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil), expired)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"})
	raw, err := noExp.SignedString([]byte(testSecret))
	require.NoError(t, err)
	rec, _ = do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil), raw)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	traversal := signToken(t, "../u1", time.Now().Add(time.Hour))
	rec, _ = do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil), traversal)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil), signToken(t, "u1", time.Now().Add(time.Hour)))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticationDisabled(t *testing.T) {
	cases := &fakeCases{}
	r := newTestRouter(cases, "")

	body, ct := multipartImage(t, "image/png", []byte("png"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	req.Header.Set("Content-Type", ct)
	rec, _ := do(t, r, req, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, AnonymousUser, cases.lastUID)
}

func TestAnalyzeXRay(t *testing.T) {
	cases := &fakeCases{}
	r := newTestRouter(cases, testSecret)
	token := signToken(t, "u1", time.Now().Add(time.Hour))

	body, ct := multipartImage(t, "image/png", []byte("png bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	req.Header.Set("Content-Type", ct)
	rec, resp := do(t, r, req, token)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "x-1", resp["analysis_id"])
	require.Equal(t, "Cardiomegaly", resp["top_finding"])
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("heat")), resp["heatmap"])
	require.Equal(t, "u1", cases.lastUID)
	require.Equal(t, []byte("png bytes"), cases.lastRaw)

	body, ct = multipartImage(t, "text/plain", []byte("hello"))
	req = httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	req.Header.Set("Content-Type", ct)
	rec, _ = do(t, r, req, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/analyze", nil)
	rec, _ = do(t, r, req, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeXRay_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"ood", &entity.OODError{Score: 15000, Threshold: 10000}, http.StatusUnprocessableEntity, "OOD_DETECTED"},
		{"decode", fmt.Errorf("wrap: %w", entity.ErrDecode), http.StatusBadRequest, "INVALID_IMAGE"},
		{"quota", entity.ErrQuotaExceeded, http.StatusForbidden, "QUOTA_EXCEEDED"},
		{"model", entity.ErrModelUnavailable, http.StatusServiceUnavailable, "MODEL_UNAVAILABLE"},
		{"internal", errors.New("tensor shape [1 3] mismatch"), http.StatusInternalServerError, "ANALYSIS_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&fakeCases{xrayErr: tt.err}, testSecret)
			body, ct := multipartImage(t, "image/jpeg", []byte("jpg"))
			req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
			req.Header.Set("Content-Type", ct)
			rec, resp := do(t, r, req, signToken(t, "u1", time.Now().Add(time.Hour)))

			require.Equal(t, tt.status, rec.Code)
			require.Equal(t, tt.code, resp["error"])
			require.NotContains(t, rec.Body.String(), "tensor shape")
			if tt.name == "ood" {
				require.EqualValues(t, 15000, resp["ood_score"])
			}
		})
	}
}

func TestAnalyzeECG(t *testing.T) {
	cases := &fakeCases{}
	r := newTestRouter(cases, testSecret)
	token := signToken(t, "u2", time.Now().Add(time.Hour))

	payload := `{"image":"data:image/png;base64,` + base64.StdEncoding.EncodeToString([]byte("strip")) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ecg/analyze", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	rec, resp := do(t, r, req, token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "e-1", resp["analysis_id"])
	require.EqualValues(t, 250, resp["sampling_rate"])
	require.Equal(t, []byte("strip"), cases.lastRaw)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/ecg/analyze", bytes.NewBufferString(`{"image":"%%%"}`))
	req.Header.Set("Content-Type", "application/json")
	rec, resp = do(t, r, req, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "INVALID_IMAGE", resp["error"])

	req = httptest.NewRequest(http.MethodPost, "/api/v1/ecg/analyze", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec, _ = do(t, r, req, token)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	cases.ecgErr = fmt.Errorf("digitize: %w", entity.ErrSignalExtraction)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/ecg/analyze", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	rec, resp = do(t, r, req, token)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "FAILED_TO_EXTRACT_SIGNAL", resp["error"])
	require.Equal(t, entity.ErrSignalExtraction.Error(), resp["message"])
}

func TestArchiveEndpoints(t *testing.T) {
	cases := &fakeCases{objects: map[string][]byte{"u1/a/result.json": []byte(`{"ok":true}`)}}
	r := newTestRouter(cases, testSecret)
	token := signToken(t, "u1", time.Now().Add(time.Hour))

	rec, resp := do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil), token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp["objects"], 1)
	require.EqualValues(t, 11, resp["total_bytes"])

	rec, _ = do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/object?key=u1/a/result.json", nil), token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `{"ok":true}`, rec.Body.String())

	rec, resp = do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/object?key=u1/missing", nil), token)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "NOT_FOUND", resp["error"])

	rec, _ = do(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/object", nil), token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

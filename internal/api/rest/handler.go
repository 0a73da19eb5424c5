package rest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	app "radiology-bot/internal/application"
	"radiology-bot/internal/domain/entity"
)

// Cases сценарии анализа, доступные через API.
type Cases interface {
	RunXRay(ctx context.Context, userID string, raw []byte) (*app.XRayCase, error)
	RunECG(ctx context.Context, userID string, raw []byte) (*app.ECGCase, error)
	ListArchive(ctx context.Context, userID string) ([]entity.StoredObject, error)
	ArchiveSize(ctx context.Context, userID string) (int64, error)
	Fetch(ctx context.Context, userID, key string) ([]byte, error)
}

// Handler HTTP-обработчики анализа и архива.
type Handler struct {
	cases   Cases
	backend string
	logger  *slog.Logger
}

// NewHandler создаёт обработчики. backend попадает в ответ /health.
func NewHandler(cases Cases, backend string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{cases: cases, backend: backend, logger: logger}
}

type xrayResponse struct {
	AnalysisID string `json:"analysis_id"`
	*entity.XRayReport
}

type ecgRequest struct {
	Image string `json:"image" binding:"required"`
}

type ecgResponse struct {
	AnalysisID string `json:"analysis_id"`
	*entity.ECGReport
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "storage": h.backend})
}

// POST /api/v1/analyze
func (h *Handler) AnalyzeXRay(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "message": "multipart field 'file' is required"})
		return
	}
	if !strings.HasPrefix(file.Header.Get("Content-Type"), "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_IMAGE", "message": "File must be an image"})
		return
	}

	raw, err := readUpload(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "message": "could not read upload"})
		return
	}

	res, err := h.cases.RunXRay(c.Request.Context(), userID(c), raw)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, xrayResponse{AnalysisID: res.ID, XRayReport: res.Report})
}

// POST /api/v1/ecg/analyze
func (h *Handler) AnalyzeECG(c *gin.Context) {
	var req ecgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "message": "JSON body with 'image' is required"})
		return
	}

	raw, err := app.DecodeImagePayload(req.Image)
	if err != nil {
		h.writeError(c, err)
		return
	}

	res, err := h.cases.RunECG(c.Request.Context(), userID(c), raw)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ecgResponse{AnalysisID: res.ID, ECGReport: res.Report})
}

// GET /api/v1/analyses
func (h *Handler) ListAnalyses(c *gin.Context) {
	ctx := c.Request.Context()
	objects, err := h.cases.ListArchive(ctx, userID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	size, err := h.cases.ArchiveSize(ctx, userID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if objects == nil {
		objects = []entity.StoredObject{}
	}
	c.JSON(http.StatusOK, gin.H{"objects": objects, "total_bytes": size})
}

// GET /api/v1/analyses/object?key=
func (h *Handler) GetObject(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "message": "query parameter 'key' is required"})
		return
	}

	data, err := h.cases.Fetch(c.Request.Context(), userID(c), key)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}

// writeError переводит ошибки конвейера в HTTP-ответы; детали внутренних
// ошибок остаются в логе.
func (h *Handler) writeError(c *gin.Context, err error) {
	var ood *entity.OODError
	switch {
	case errors.As(err, &ood):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     "OOD_DETECTED",
			"message":   ood.Error(),
			"ood_score": ood.Score,
		})
	case errors.Is(err, entity.ErrSignalExtraction):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "FAILED_TO_EXTRACT_SIGNAL",
			"message": entity.ErrSignalExtraction.Error(),
		})
	case errors.Is(err, entity.ErrDecode), errors.Is(err, entity.ErrInvalidPayload):
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_IMAGE", "message": "Invalid image data"})
	case errors.Is(err, entity.ErrQuotaExceeded):
		c.JSON(http.StatusForbidden, gin.H{"error": "QUOTA_EXCEEDED", "message": "Analysis quota exceeded"})
	case errors.Is(err, entity.ErrObjectNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "NOT_FOUND", "message": "Object not found"})
	case errors.Is(err, entity.ErrModelUnavailable):
		h.logger.Error("model unavailable", "request_id", requestID(c), "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "MODEL_UNAVAILABLE", "message": "Model is not available"})
	default:
		h.logger.Error("analysis failed", "request_id", requestID(c), "user_id", userID(c), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ANALYSIS_FAILED", "message": "Analysis failed"})
	}
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

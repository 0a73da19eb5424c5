package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"radiology-bot/internal/domain/entity"
	"radiology-bot/internal/domain/port"
)

// XRayAnalyzer конвейер рентгеновского анализа.
type XRayAnalyzer interface {
	Analyze(ctx context.Context, raw []byte) (*entity.XRayReport, error)
}

// ECGAnalyzer конвейер анализа ЭКГ.
type ECGAnalyzer interface {
	Analyze(ctx context.Context, raw []byte) (*entity.ECGReport, error)
}

// XRayCase результат рентгеновского анализа с идентификатором в архиве.
type XRayCase struct {
	ID     string
	Report *entity.XRayReport
}

// ECGCase результат анализа ЭКГ с идентификатором в архиве.
type ECGCase struct {
	ID     string
	Report *entity.ECGReport
}

// CaseService оборачивает конвейеры квотой и архивом артефактов.
type CaseService struct {
	xray    XRayAnalyzer
	ecg     ECGAnalyzer
	storage port.ObjectStorage
	usage   port.UsageTracker
	logger  *slog.Logger
}

// NewCaseService создаёт сервис. storage и usage могут быть nil.
func NewCaseService(xray XRayAnalyzer, ecg ECGAnalyzer, storage port.ObjectStorage, usage port.UsageTracker, logger *slog.Logger) *CaseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CaseService{xray: xray, ecg: ecg, storage: storage, usage: usage, logger: logger}
}

type artifact struct {
	name        string
	data        []byte
	contentType string
}

// RunXRay занимает запуск из квоты, анализирует снимок и сохраняет артефакты.
func (s *CaseService) RunXRay(ctx context.Context, userID string, raw []byte) (*XRayCase, error) {
	if err := s.reserve(ctx, userID); err != nil {
		return nil, err
	}

	report, err := s.xray.Analyze(ctx, raw)
	if err != nil {
		s.release(ctx, userID)
		return nil, err
	}

	id := uuid.NewString()
	summary := *report
	summary.Heatmap, summary.Pinpoint = nil, nil
	s.archive(ctx, userID, id, raw, summary,
		artifact{name: "heatmap.jpg", data: report.Heatmap, contentType: "image/jpeg"},
		artifact{name: "pinpoint.jpg", data: report.Pinpoint, contentType: "image/jpeg"},
	)

	return &XRayCase{ID: id, Report: report}, nil
}

// RunECG занимает запуск из квоты, анализирует ленту и сохраняет артефакты.
func (s *CaseService) RunECG(ctx context.Context, userID string, raw []byte) (*ECGCase, error) {
	if err := s.reserve(ctx, userID); err != nil {
		return nil, err
	}

	report, err := s.ecg.Analyze(ctx, raw)
	if err != nil {
		s.release(ctx, userID)
		return nil, err
	}

	id := uuid.NewString()
	summary := *report
	summary.Waveform = nil
	s.archive(ctx, userID, id, raw, summary,
		artifact{name: "waveform.png", data: report.Waveform, contentType: "image/png"},
	)

	return &ECGCase{ID: id, Report: report}, nil
}

// ListArchive возвращает объекты пользователя.
func (s *CaseService) ListArchive(ctx context.Context, userID string) ([]entity.StoredObject, error) {
	if s.storage == nil {
		return []entity.StoredObject{}, nil
	}
	return s.storage.List(ctx, userPrefix(userID))
}

// ArchiveSize суммарный объём архива пользователя в байтах.
func (s *CaseService) ArchiveSize(ctx context.Context, userID string) (int64, error) {
	if s.storage == nil {
		return 0, nil
	}
	return s.storage.Size(ctx, userPrefix(userID))
}

// Fetch отдаёт объект из архива пользователя. Чужие ключи не видны.
func (s *CaseService) Fetch(ctx context.Context, userID, key string) ([]byte, error) {
	if s.storage == nil || !ownsKey(userID, key) {
		return nil, fmt.Errorf("%w: %s", entity.ErrObjectNotFound, key)
	}
	return s.storage.Get(ctx, key)
}

// reserve занимает запуск до анализа.
func (s *CaseService) reserve(ctx context.Context, userID string) error {
	if s.usage == nil {
		return nil
	}
	return s.usage.Reserve(ctx, userID)
}

// release возвращает запуск: неудачный анализ не засчитывается.
func (s *CaseService) release(ctx context.Context, userID string) {
	if s.usage == nil {
		return
	}
	// отменённый запрос всё равно должен вернуть запуск
	if err := s.usage.Release(context.WithoutCancel(ctx), userID); err != nil {
		s.logger.Warn("failed to release usage", "user_id", userID, "error", err)
	}
}

// archive сохраняет вход, артефакты и result.json; ошибки только логируются.
func (s *CaseService) archive(ctx context.Context, userID, id string, raw []byte, summary any, artifacts ...artifact) {
	if s.storage == nil {
		return
	}

	inputType := http.DetectContentType(raw)
	all := []artifact{{name: "input" + extensionOf(inputType), data: raw, contentType: inputType}}
	all = append(all, artifacts...)

	result, err := json.Marshal(summary)
	if err != nil {
		s.logger.Warn("failed to encode result", "analysis_id", id, "error", err)
	} else {
		all = append(all, artifact{name: "result.json", data: result, contentType: "application/json"})
	}

	prefix := userPrefix(userID) + id + "/"
	for _, a := range all {
		if len(a.data) == 0 {
			continue
		}
		if err := s.storage.Put(ctx, prefix+a.name, a.data, a.contentType); err != nil {
			s.logger.Warn("failed to archive artifact",
				"backend", s.storage.Backend(),
				"key", prefix+a.name,
				"error", err,
			)
		}
	}
}

func userPrefix(userID string) string {
	return userID + "/"
}

func ownsKey(userID, key string) bool {
	if userID == "" || !strings.HasPrefix(key, userPrefix(userID)) {
		return false
	}
	return path.Clean(key) == key && !strings.Contains(key, "..")
}

func extensionOf(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	default:
		return ".bin"
	}
}

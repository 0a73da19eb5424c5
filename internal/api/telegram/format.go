package telegram

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"radiology-bot/internal/domain/entity"
)

const topPredictions = 3

var consensusLabels = map[entity.ConsensusStatus]string{
	entity.ConsensusApproved:  "✅ подтверждено",
	entity.ConsensusConflict:  "⚠️ расхождение",
	entity.ConsensusUncertain: "❔ не определено",
}

// FormatXRay текстовая сводка рентгеновского анализа.
func FormatXRay(r *entity.XRayReport) string {
	var sb strings.Builder
	sb.WriteString("🩻 Результат анализа рентгенограммы\n\n")
	fmt.Fprintf(&sb, "Главная находка: %s (%.1f%%)\n", r.TopFinding, r.TopProbability*100)

	if len(r.Predictions) > 0 {
		sb.WriteString("\nВероятности:\n")
		for _, p := range rankPredictions(r.Predictions, topPredictions) {
			fmt.Fprintf(&sb, "• %s: %.1f%%\n", p.label, p.prob*100)
		}
	}

	fmt.Fprintf(&sb, "\nКонсенсус (%s): %s\n%s\n", r.Consensus.AgentName, consensusLabels[r.Consensus.Status], r.Consensus.Reason)
	if r.IsHighConfidence {
		sb.WriteString("\nУверенность: высокая\n")
	} else {
		sb.WriteString("\nУверенность: требуется проверка врачом\n")
	}
	fmt.Fprintf(&sb, "Модели: %s", r.ModelInfo)
	return sb.String()
}

// FormatECG текстовая сводка анализа ЭКГ.
func FormatECG(r *entity.ECGReport) string {
	var sb strings.Builder
	sb.WriteString("📈 Результат анализа ЭКГ\n\n")
	for _, key := range []string{entity.MetricStatus, entity.MetricHeartRate, entity.MetricPeaks, entity.MetricSDNN} {
		if v, ok := r.Metrics[key]; ok {
			fmt.Fprintf(&sb, "%s: %v\n", key, v)
		}
	}

	if len(r.Findings) > 0 {
		sb.WriteString("\nНаходки:\n")
		for _, f := range r.Findings {
			fmt.Fprintf(&sb, "• %s\n", f)
		}
	}

	if len(r.Warnings) > 0 {
		sb.WriteString("\n⚠️ Качество фото:\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&sb, "• %s\n", w)
		}
	}

	fmt.Fprintf(&sb, "\nРазвёртка принята равной %d Гц.", r.SamplingRate)
	return sb.String()
}

// ErrorText сообщение пользователю по ошибке анализа.
func ErrorText(err error) string {
	var ood *entity.OODError
	switch {
	case errors.As(err, &ood):
		return fmt.Sprintf("🚫 Снимок не похож на рентгенограмму грудной клетки (ошибка реконструкции %.0f).", ood.Score)
	case errors.Is(err, entity.ErrSignalExtraction):
		return "📉 Не удалось выделить сигнал ЭКГ. Снимите ленту ровнее и при хорошем освещении."
	case errors.Is(err, entity.ErrQuotaExceeded):
		return "⛔ Лимит анализов исчерпан."
	case errors.Is(err, entity.ErrModelUnavailable):
		return "🛠 Модели сейчас недоступны. Попробуйте позже."
	default:
		return msgProcessingError
	}
}

type prediction struct {
	label string
	prob  float64
}

func rankPredictions(preds map[string]float64, n int) []prediction {
	out := make([]prediction, 0, len(preds))
	for label, prob := range preds {
		out = append(out, prediction{label: label, prob: prob})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].prob != out[j].prob {
			return out[i].prob > out[j].prob
		}
		return out[i].label < out[j].label
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

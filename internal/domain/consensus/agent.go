package consensus

import (
	"fmt"

	"radiology-bot/internal/domain/entity"
)

const (
	// AgentName подпись агента в заключении
	AgentName = "Senior Clinical Auditor"

	// MinProbability ниже этой вероятности сверка не выполняется
	MinProbability = 0.15
)

const (
	reasonNoData      = "No significant pathologies detected or visual attention data unavailable."
	reasonNonSpecific = "Visual focus is non-specific."
)

// Agent детерминированно сверяет главную находку с пиком карты внимания.
type Agent struct {
	rules Rules
}

// NewAgent создаёт агента с переданной таблицей правил.
func NewAgent(rules Rules) *Agent {
	return &Agent{rules: rules}
}

// Review возвращает заключение по находке, её вероятности и карте внимания,
// выровненной по исходному изображению.
func (a *Agent) Review(finding string, prob float64, saliency *entity.SaliencyMap) entity.ConsensusVerdict {
	if finding == entity.NoFindings || prob < MinProbability || saliency == nil || len(saliency.Values) == 0 {
		return entity.ConsensusVerdict{
			Status:    entity.ConsensusUncertain,
			AgentName: AgentName,
			Reason:    reasonNoData,
		}
	}

	x, y := saliency.NormalizedPeak()
	verdict := entity.ConsensusVerdict{
		Status:     entity.ConsensusUncertain,
		AgentName:  AgentName,
		Reason:     reasonNonSpecific,
		PeakCoords: []float64{x, y},
	}

	category, ok := a.rules.CategoryOf(finding)
	if !ok {
		return verdict
	}

	if a.rules.ZonesAt(x, y)[category.Zone] {
		verdict.Status = entity.ConsensusApproved
		verdict.Reason = fmt.Sprintf(category.Approved, finding)
	} else {
		verdict.Status = entity.ConsensusConflict
		verdict.Reason = fmt.Sprintf(category.Conflict, finding)
	}
	return verdict
}

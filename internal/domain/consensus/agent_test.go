package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"radiology-bot/internal/domain/entity"
)

// peakAt строит карту 100x100 с единственным пиком в нормализованной точке.
func peakAt(x, y float64) *entity.SaliencyMap {
	s := entity.NewSaliencyMap(100, 100)
	s.Set(int(x*100), int(y*100), 1)
	return s
}

func TestAgentReview_Cardiomegaly(t *testing.T) {
	agent := NewAgent(DefaultRules())

	v := agent.Review("Cardiomegaly", 0.8, peakAt(0.5, 0.6))
	require.Equal(t, entity.ConsensusApproved, v.Status)
	require.InDeltaSlice(t, []float64{0.5, 0.6}, v.PeakCoords, 1e-9)

	v = agent.Review("Cardiomegaly", 0.8, peakAt(0.1, 0.1))
	require.Equal(t, entity.ConsensusConflict, v.Status)
	require.Contains(t, v.Reason, "cardiac silhouette")
}

func TestAgentReview_Pulmonary(t *testing.T) {
	agent := NewAgent(DefaultRules())

	v := agent.Review("Effusion", 0.5, peakAt(0.2, 0.5))
	require.Equal(t, entity.ConsensusApproved, v.Status)

	// средостение не относится к лёгочным полям
	v = agent.Review("Pneumothorax", 0.5, peakAt(0.5, 0.5))
	require.Equal(t, entity.ConsensusConflict, v.Status)

	v = agent.Review("Atelectasis", 0.5, peakAt(0.8, 0.95))
	require.Equal(t, entity.ConsensusConflict, v.Status)
}

func TestAgentReview_Uncertain(t *testing.T) {
	agent := NewAgent(DefaultRules())

	v := agent.Review(entity.NoFindings, 0.9, peakAt(0.5, 0.6))
	require.Equal(t, entity.ConsensusUncertain, v.Status)
	require.Empty(t, v.PeakCoords)

	v = agent.Review("Cardiomegaly", 0.1, peakAt(0.5, 0.6))
	require.Equal(t, entity.ConsensusUncertain, v.Status)

	v = agent.Review("Cardiomegaly", 0.9, nil)
	require.Equal(t, entity.ConsensusUncertain, v.Status)

	v = agent.Review("Fracture", 0.9, peakAt(0.2, 0.5))
	require.Equal(t, entity.ConsensusUncertain, v.Status)
	require.Len(t, v.PeakCoords, 2)
}

func TestRules_Boundaries(t *testing.T) {
	rules := DefaultRules()

	require.True(t, rules.ZonesAt(0.4, 0.4)[ZoneHeart])
	require.True(t, rules.ZonesAt(0.6, 0.8)[ZoneHeart])
	require.False(t, rules.ZonesAt(0.61, 0.6)[ZoneHeart])

	require.False(t, rules.ZonesAt(0.45, 0.5)[ZoneLung])
	require.True(t, rules.ZonesAt(0.44, 0.1)[ZoneLung])
	require.False(t, rules.ZonesAt(0.2, 0.91)[ZoneLung])

	// зоны пересекаются у левого края сердечной тени
	zones := rules.ZonesAt(0.42, 0.5)
	require.True(t, zones[ZoneHeart])
	require.True(t, zones[ZoneLung])
}

func TestDefaultRules_ReturnsCopy(t *testing.T) {
	a := DefaultRules()
	a.Regions[0].X.Min = 0
	require.Equal(t, 0.4, DefaultRules().Regions[0].X.Min)
}

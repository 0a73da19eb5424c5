package entity

// NoFindings метка, которая заменяет находку с вероятностью ниже клинического порога.
const NoFindings = "No Findings"

// DefaultConditions словарь патологий, общий для обоих классификаторов ансамбля.
func DefaultConditions() []string {
	return []string{
		"Atelectasis",
		"Consolidation",
		"Infiltration",
		"Pneumothorax",
		"Edema",
		"Emphysema",
		"Fibrosis",
		"Effusion",
		"Pneumonia",
		"Pleural_Thickening",
		"Cardiomegaly",
		"Nodule",
		"Mass",
		"Hernia",
		"Lung Lesion",
		"Fracture",
		"Lung Opacity",
		"Enlarged Cardiomediastinum",
	}
}

// ConsensusStatus итог сверки находки с областью внимания модели.
type ConsensusStatus string

const (
	ConsensusApproved  ConsensusStatus = "APPROVED"
	ConsensusConflict  ConsensusStatus = "CONFLICT"
	ConsensusUncertain ConsensusStatus = "UNCERTAIN"
)

// ConsensusVerdict заключение агента клинического консенсуса.
type ConsensusVerdict struct {
	Status    ConsensusStatus `json:"status"`
	AgentName string          `json:"agent_name"`
	Reason    string          `json:"reason"`
	// PeakCoords нормализованные (x, y) пика внимания; пусто, если карта не строилась.
	PeakCoords []float64 `json:"peak_attention_coords,omitempty"`
}

// XRayReport результат анализа рентгеновского снимка.
type XRayReport struct {
	Predictions      map[string]float64 `json:"predictions"`
	Heatmap          []byte             `json:"heatmap"`
	Pinpoint         []byte             `json:"pinpoint"`
	TopFinding       string             `json:"top_finding"`
	TopProbability   float64            `json:"top_probability"`
	Consensus        ConsensusVerdict   `json:"consensus"`
	IsHighConfidence bool               `json:"is_high_confidence"`
	ModelInfo        string             `json:"model_info"`
	OODScore         float64            `json:"ood_score"`
}

package entity

// ECGTrace оцифрованный одномерный сигнал ЭКГ.
type ECGTrace struct {
	Samples      []float64
	SamplingRate int // отсчётов в секунду
}

// Duration возвращает длительность записи в секундах.
func (t ECGTrace) Duration() float64 {
	if t.SamplingRate <= 0 {
		return 0
	}
	return float64(len(t.Samples)) / float64(t.SamplingRate)
}

// Имена клинических метрик ЭКГ.
const (
	MetricStatus    = "Status"
	MetricHeartRate = "Heart Rate (BPM)"
	MetricPeaks     = "Peaks Detected"
	MetricSDNN      = "HRV (SDNN)"
)

// NotAvailable подставляется вместо NaN и бесконечностей.
const NotAvailable = "N/A"

// ECGMetrics клинические метрики: значения float64, int или строка.
type ECGMetrics struct {
	Values   map[string]any
	Findings []string
}

// ECGReport результат анализа ЭКГ-ленты.
type ECGReport struct {
	SignalData   []float64      `json:"signal_data"`
	SamplingRate int            `json:"sampling_rate"`
	Metrics      map[string]any `json:"metrics"`
	Findings     []string       `json:"findings"`
	Waveform     []byte         `json:"waveform"`
	ModelInfo    string         `json:"model_info"`
	Warnings     []string       `json:"warnings,omitempty"`
}

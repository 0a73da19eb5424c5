package consensus

import "strings"

// Zone анатомическая зона на фронтальной рентгенограмме.
type Zone string

const (
	ZoneHeart Zone = "heart"
	ZoneLung  Zone = "lung"
)

// Interval замкнутый отрезок нормализованных координат.
type Interval struct {
	Min float64
	Max float64
}

// Contains проверяет Min <= v <= Max.
func (i Interval) Contains(v float64) bool {
	return v >= i.Min && v <= i.Max
}

// Region зона в координатах [0,1]x[0,1]. При OutsideX точка должна лежать
// строго вне отрезка X (лёгочные поля по обе стороны от средостения).
type Region struct {
	Zone     Zone
	X        Interval
	Y        Interval
	OutsideX bool
}

// Contains проверяет попадание точки в зону.
func (r Region) Contains(x, y float64) bool {
	if !r.Y.Contains(y) {
		return false
	}
	if r.OutsideX {
		return !r.X.Contains(x)
	}
	return r.X.Contains(x)
}

// Category группа находок, которые должны подтверждаться вниманием в зоне Zone.
type Category struct {
	Name     string
	Keywords []string
	Zone     Zone
	Approved string // шаблон причины при совпадении, %s = находка
	Conflict string // шаблон причины при расхождении
}

// Matches сравнивает находку с ключевыми словами без учёта регистра.
func (c Category) Matches(finding string) bool {
	f := strings.ToLower(finding)
	for _, k := range c.Keywords {
		if strings.Contains(f, k) {
			return true
		}
	}
	return false
}

// Rules полный набор правил агента.
type Rules struct {
	Regions    []Region
	Categories []Category
}

// DefaultRules возвращает новую копию стандартной таблицы зон и категорий.
func DefaultRules() Rules {
	return Rules{
		Regions: []Region{
			{Zone: ZoneHeart, X: Interval{0.4, 0.6}, Y: Interval{0.4, 0.8}},
			{Zone: ZoneLung, X: Interval{0.45, 0.55}, Y: Interval{0.1, 0.9}, OutsideX: true},
		},
		Categories: []Category{
			{
				Name:     "cardiac",
				Keywords: []string{"cardiomegaly"},
				Zone:     ZoneHeart,
				Approved: "Visual focus correctly identifies the cardiac enlargement region for %s.",
				Conflict: "Caution: high probability of %s but visual attention is outside the cardiac silhouette.",
			},
			{
				Name:     "pulmonary",
				Keywords: []string{"pneumonia", "effusion", "pneumothorax", "atelectasis", "infiltration"},
				Zone:     ZoneLung,
				Approved: "Visual focus correctly identifies a pulmonary abnormality in the lung fields for %s.",
				Conflict: "Caution: %s predicted but visual attention is non-pulmonary. Suggest secondary review.",
			},
		},
	}
}

// ZonesAt возвращает все зоны, содержащие точку.
func (r Rules) ZonesAt(x, y float64) map[Zone]bool {
	zones := make(map[Zone]bool, len(r.Regions))
	for _, reg := range r.Regions {
		if reg.Contains(x, y) {
			zones[reg.Zone] = true
		}
	}
	return zones
}

// CategoryOf возвращает первую подходящую категорию находки.
func (r Rules) CategoryOf(finding string) (Category, bool) {
	for _, c := range r.Categories {
		if c.Matches(finding) {
			return c, true
		}
	}
	return Category{}, false
}

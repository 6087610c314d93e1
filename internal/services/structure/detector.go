package structure

import (
	"sort"

	"FinSignal/internal/domain/models"
)

// Analysis is everything the detector found on one timeframe window.
type Analysis struct {
	Series     models.BarSeries
	Indicators *models.IndicatorSet
	Events     []models.StructureEvent
	Patterns   []models.Pattern
}

// LowConfidence reports whether the window had missing bars.
func (a Analysis) LowConfidence() bool {
	return a.Series.LowConfidence() || (a.Indicators != nil && a.Indicators.LowConfidence)
}

// EventsOf returns events of type typ and bias, oldest first.
func (a Analysis) EventsOf(typ models.StructureType, bias models.Bias) []models.StructureEvent {
	var out []models.StructureEvent
	for _, e := range a.Events {
		if e.Type == typ && e.Bias == bias {
			out = append(out, e)
		}
	}
	return out
}

// Detector runs every structure and pattern detector. It holds no state
// between calls.
type Detector struct {
	cfg Config
}

func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

func (d *Detector) Analyze(series models.BarSeries, set *models.IndicatorSet) Analysis {
	bars := series.Bars
	events := DetectBOS(bars, d.cfg)
	events = append(events, DetectCHoCH(bars, set, d.cfg)...)
	sort.SliceStable(events, func(i, j int) bool { return events[i].TriggerIndex < events[j].TriggerIndex })

	patterns := DetectOrderBlocks(bars, d.cfg)
	patterns = append(patterns, DetectFVGs(bars, d.cfg)...)
	patterns = append(patterns, DetectSweeps(bars, d.cfg)...)

	return Analysis{Series: series, Indicators: set, Events: events, Patterns: patterns}
}

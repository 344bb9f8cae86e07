// Package anomaly flags outliers in a metric series with two independent passes
// (z-score and interquartile range) and merges them into one list with at most
// one anomaly per date.
package anomaly

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/statlens/statlens/internal/analytics"
)

// Severity ranks how abnormal an anomaly is. Higher values are more severe.
type Severity int

const (
	SeverityLow    Severity = 1
	SeverityMedium Severity = 2
	SeverityHigh   Severity = 3
)

// String returns the wire name of the severity
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// ParseSeverity converts a wire name back to a Severity
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	default:
		return 0, fmt.Errorf("unknown severity: %q", s)
	}
}

// MarshalJSON encodes the severity as its wire name
func (s Severity) MarshalJSON() ([]byte, error) {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return json.Marshal(s.String())
	default:
		return nil, fmt.Errorf("cannot marshal %s", s)
	}
}

// UnmarshalJSON decodes a wire name
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// DetectionType names the technique that produced an anomaly
type DetectionType string

const (
	TypeZScore DetectionType = "z-score"
	TypeIQR    DetectionType = "iqr"

	// TypeIsolationForest is reserved for stored results; no detector produces it.
	TypeIsolationForest DetectionType = "isolation-forest"
)

// Valid reports whether t is a known detection type
func (t DetectionType) Valid() bool {
	switch t {
	case TypeZScore, TypeIQR, TypeIsolationForest:
		return true
	}
	return false
}

// Anomaly is a flagged observation
type Anomaly struct {
	Date     string        `json:"date"`
	Value    float64       `json:"value"`
	Type     DetectionType `json:"type"`
	Severity Severity      `json:"severity"`
	ZScore   *float64      `json:"zscore,omitempty"` // only set for z-score anomalies
}

// Config holds tunables of both passes
type Config struct {
	// ZScoreThreshold flags points with |z| strictly above it
	ZScoreThreshold float64

	// ZScoreMinPoints is the smallest series the z-score pass looks at
	ZScoreMinPoints int

	// IQRMinPoints is the smallest series the IQR pass looks at
	IQRMinPoints int

	// IQRMultiplier scales the IQR for the outer fences
	IQRMultiplier float64

	// IQRExtremeMultiplier scales the IQR for the fences beyond which severity is high
	IQRExtremeMultiplier float64
}

// DefaultConfig returns default detector configuration
func DefaultConfig() Config {
	return Config{
		ZScoreThreshold:      2.5,
		ZScoreMinPoints:      3,
		IQRMinPoints:         4,
		IQRMultiplier:        1.5,
		IQRExtremeMultiplier: 3,
	}
}

// Detector is a single detection pass
type Detector interface {
	// Name returns the registry name of the pass
	Name() string

	// Detect returns the anomalies of the series in input order
	Detect(series analytics.Series, config Config) []Anomaly
}

var (
	registryMu       sync.RWMutex
	detectorRegistry = make(map[string]Detector)
)

// RegisterDetector adds a detector to the registry
func RegisterDetector(name string, detector Detector) {
	registryMu.Lock()
	defer registryMu.Unlock()
	detectorRegistry[name] = detector
}

// GetDetector returns a detector by name
func GetDetector(name string) (Detector, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if detector, ok := detectorRegistry[name]; ok {
		return detector, nil
	}
	return nil, fmt.Errorf("unknown anomaly detector: %s", name)
}

// ListDetectors returns the sorted names of registered detectors
func ListDetectors() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(detectorRegistry))
	for name := range detectorRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package timeframe

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"market-structure/src/models"
)

// DefaultLabels is used when no windows_aggregation is configured.
var DefaultLabels = []string{"5m", "15m", "30m", "1h", "4h", "1d"}

// -----------------------------------------------------------------------------

// Registry is the ordered, read-only set of roll-up resolutions.
// Build it once at startup and share it by pointer.
type Registry struct {
	resolutions []models.MResolution
	byLabel     map[string]models.MResolution
}

// -----------------------------------------------------------------------------

// NewRegistry parses labels and orders them by duration
func NewRegistry(labels []string) (*Registry, error) {
	if len(labels) == 0 {
		labels = DefaultLabels
	}

	r := &Registry{byLabel: make(map[string]models.MResolution, len(labels))}
	seen := make(map[time.Duration]string, len(labels))

	for _, label := range labels {
		d, err := ParseLabel(label)
		if err != nil {
			return nil, err
		}
		if _, dup := r.byLabel[label]; dup {
			return nil, fmt.Errorf("duplicate resolution %q", label)
		}
		if other, dup := seen[d]; dup {
			return nil, fmt.Errorf("resolutions %q and %q have the same duration", other, label)
		}
		seen[d] = label

		res := models.MResolution{Label: label, Duration: d}
		r.resolutions = append(r.resolutions, res)
		r.byLabel[label] = res
	}

	sort.Slice(r.resolutions, func(i, j int) bool {
		return r.resolutions[i].Duration < r.resolutions[j].Duration
	})
	return r, nil
}

// -----------------------------------------------------------------------------

// ParseLabel turns "5m", "4h", "1d" or "1w" into a duration
func ParseLabel(label string) (time.Duration, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return 0, fmt.Errorf("empty resolution label")
	}

	var d time.Duration
	switch unit := label[len(label)-1]; unit {
	case 'd', 'w':
		n, err := strconv.Atoi(label[:len(label)-1])
		if err != nil {
			return 0, fmt.Errorf("invalid resolution %q: %w", label, err)
		}
		d = time.Duration(n) * 24 * time.Hour
		if unit == 'w' {
			d *= 7
		}
	default:
		parsed, err := time.ParseDuration(label)
		if err != nil {
			return 0, fmt.Errorf("invalid resolution %q: %w", label, err)
		}
		d = parsed
	}

	if d < time.Millisecond || d%time.Millisecond != 0 {
		return 0, fmt.Errorf("resolution %q must be a positive whole number of milliseconds", label)
	}
	return d, nil
}

// -----------------------------------------------------------------------------

// All returns the resolutions, shortest first
func (r *Registry) All() []models.MResolution {
	out := make([]models.MResolution, len(r.resolutions))
	copy(out, r.resolutions)
	return out
}

// -----------------------------------------------------------------------------

func (r *Registry) Lookup(label string) (models.MResolution, bool) {
	res, ok := r.byLabel[label]
	return res, ok
}

// -----------------------------------------------------------------------------

func (r *Registry) Labels() []string {
	labels := make([]string, len(r.resolutions))
	for i, res := range r.resolutions {
		labels[i] = res.Label
	}
	return labels
}

// -----------------------------------------------------------------------------

func (r *Registry) Len() int {
	return len(r.resolutions)
}

package compiler

import (
	"fmt"
	"strings"

	"github.com/bookwright/steward/internal/metrics"
)

// Pack validation error codes (E200-E299).
const (
	ErrPackNameEmpty     = "E200" // pack name required
	ErrPackNoMetrics     = "E201" // at least one metric required
	ErrDuplicateMetric   = "E202" // duplicate metric id
	ErrInvalidDirection  = "E203" // unknown direction string
	ErrDialUnknownMetric = "E204" // dial references undeclared metric
	ErrMetricWithoutDial = "E205" // metric has no dial
	ErrDialRangeInvalid  = "E206" // range inverted, gapped, or overlapping
	ErrDuplicateDial     = "E207" // duplicate dial for one metric
)

// ValidationError is one pack-level diagnostic.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidatePack checks pack-level invariants: every metric carries exactly
// one dial, every dial targets a declared metric, and every dial's ranges
// are direction-ordered and contiguous. Returns all diagnostics found, not
// just the first.
func ValidatePack(p *Pack) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "pack.name",
			Message: "pack name is required and must be non-empty",
			Code:    ErrPackNameEmpty,
		})
	}
	if len(p.Metrics) == 0 {
		errs = append(errs, ValidationError{
			Field:   "pack.metrics",
			Message: "at least one metric is required",
			Code:    ErrPackNoMetrics,
		})
	}

	directions := make(map[string]metrics.Direction, len(p.Metrics))
	for i, def := range p.Metrics {
		if _, dup := directions[def.ID]; dup {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("pack.metrics[%d]", i),
				Message: fmt.Sprintf("duplicate metric id %q", def.ID),
				Code:    ErrDuplicateMetric,
			})
			continue
		}
		if def.Direction != metrics.HigherIsBetter && def.Direction != metrics.LowerIsBetter {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("pack.metrics[%d].direction", i),
				Message: fmt.Sprintf("metric %q: unknown direction %q", def.ID, def.Direction),
				Code:    ErrInvalidDirection,
			})
		}
		directions[def.ID] = def.Direction
	}

	dialed := make(map[string]bool, len(p.Dials))
	for i, dial := range p.Dials {
		field := fmt.Sprintf("pack.dials[%d]", i)
		if dialed[dial.Metric] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate dial for metric %q", dial.Metric),
				Code:    ErrDuplicateDial,
			})
			continue
		}
		dialed[dial.Metric] = true

		dir, known := directions[dial.Metric]
		if !known {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("dial references undeclared metric %q", dial.Metric),
				Code:    ErrDialUnknownMetric,
			})
			continue
		}
		if err := dial.Validate(dir); err != nil {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: err.Error(),
				Code:    ErrDialRangeInvalid,
			})
		}
	}

	for _, def := range p.Metrics {
		if !dialed[def.ID] {
			errs = append(errs, ValidationError{
				Field:   "pack.dials",
				Message: fmt.Sprintf("metric %q has no dial", def.ID),
				Code:    ErrMetricWithoutDial,
			})
		}
	}

	return errs
}

// Package compiler loads dial packs: CUE documents declaring the metric
// registry and the three-zone dial for each metric. Packs compile through
// the CUE Go API (not a CLI subprocess) and validate structurally before
// anything touches the running engine.
package compiler

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/bookwright/steward/internal/metrics"
)

//go:embed default_pack.cue
var defaultPackCUE string

// Pack is a compiled dial pack: the metric definitions plus one dial per
// metric.
type Pack struct {
	Name    string
	Metrics []metrics.Definition
	Dials   []metrics.Dial
}

// Board materializes the pack into a registry and dial board. Board-level
// validation (direction-aware ordering, contiguity) runs here.
func (p *Pack) Board() (*metrics.Registry, *metrics.Board, error) {
	reg, err := metrics.NewRegistry(p.Metrics)
	if err != nil {
		return nil, nil, fmt.Errorf("pack %s: %w", p.Name, err)
	}
	board, err := metrics.NewBoard(reg, p.Dials)
	if err != nil {
		return nil, nil, fmt.Errorf("pack %s: %w", p.Name, err)
	}
	return reg, board, nil
}

// LoadDefault compiles the embedded built-in pack. The engine runs without
// any external pack file.
func LoadDefault() (*Pack, error) {
	return CompileSource("default_pack.cue", defaultPackCUE)
}

// LoadFile compiles a pack from a CUE file on disk.
func LoadFile(path string) (*Pack, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pack: %w", err)
	}
	return CompileSource(path, string(src))
}

// CompileSource compiles CUE source into a pack. filename is used only for
// error positions. Compilation checks shape; pack-level invariants are a
// separate pass via ValidatePack, so callers can collect every diagnostic.
func CompileSource(filename, src string) (*Pack, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	return compilePack(v.LookupPath(cue.ParsePath("pack")))
}

// compilePack parses the pack struct into Go values.
func compilePack(v cue.Value) (*Pack, error) {
	if !v.Exists() {
		return nil, &CompileError{
			Field:   "pack",
			Message: "top-level pack struct is required",
		}
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	pack := &Pack{}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return nil, &CompileError{
			Field:   "pack.name",
			Message: "name is required",
			Pos:     v.Pos(),
		}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	pack.Name = name

	pack.Metrics, err = parseMetrics(v)
	if err != nil {
		return nil, err
	}
	pack.Dials, err = parseDials(v)
	if err != nil {
		return nil, err
	}
	return pack, nil
}

func parseMetrics(v cue.Value) ([]metrics.Definition, error) {
	metricsVal := v.LookupPath(cue.ParsePath("metrics"))
	if !metricsVal.Exists() {
		return nil, &CompileError{
			Field:   "pack.metrics",
			Message: "metrics struct is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := metricsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var defs []metrics.Definition
	for iter.Next() {
		mv := iter.Value()
		def := metrics.Definition{ID: iter.Label()}

		if def.Domain, err = stringField(mv, "domain"); err != nil {
			return nil, err
		}
		if def.Unit, err = stringField(mv, "unit"); err != nil {
			return nil, err
		}
		dir, err := stringField(mv, "direction")
		if err != nil {
			return nil, err
		}
		def.Direction = metrics.Direction(dir)
		defs = append(defs, def)
	}
	return defs, nil
}

func parseDials(v cue.Value) ([]metrics.Dial, error) {
	dialsVal := v.LookupPath(cue.ParsePath("dials"))
	if !dialsVal.Exists() {
		return nil, &CompileError{
			Field:   "pack.dials",
			Message: "dials struct is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := dialsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var dials []metrics.Dial
	for iter.Next() {
		dv := iter.Value()
		dial := metrics.Dial{Metric: iter.Label()}

		if dial.Green, err = parseRange(dv, "green"); err != nil {
			return nil, err
		}
		if dial.Yellow, err = parseRange(dv, "yellow"); err != nil {
			return nil, err
		}
		if dial.Red, err = parseRange(dv, "red"); err != nil {
			return nil, err
		}
		dials = append(dials, dial)
	}
	return dials, nil
}

func parseRange(v cue.Value, zone string) (metrics.Range, error) {
	zoneVal := v.LookupPath(cue.ParsePath(zone))
	if !zoneVal.Exists() {
		return metrics.Range{}, &CompileError{
			Field:   zone,
			Message: "zone range is required",
			Pos:     v.Pos(),
		}
	}

	lo, err := floatField(zoneVal, "lo")
	if err != nil {
		return metrics.Range{}, err
	}
	hi, err := floatField(zoneVal, "hi")
	if err != nil {
		return metrics.Range{}, err
	}
	return metrics.Range{Lo: lo, Hi: hi}, nil
}

func stringField(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: fmt.Sprintf("%s is required", field),
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func floatField(v cue.Value, field string) (float64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("%s is required", field),
			Pos:     v.Pos(),
		}
	}
	f, err := fv.Float64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return f, nil
}

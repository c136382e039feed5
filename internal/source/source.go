// Package source supplies evidence to the monitoring loop.
package source

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"

	"github.com/ppiankov/hazardwatch/internal/model"
)

// Source yields the evidence for a step. Every returned Evidence is complete
// and valid for the source's schema.
type Source interface {
	Next(ctx context.Context, step int) (model.Evidence, error)
}

// Kind names a source variant on the command line.
type Kind string

const (
	KindRandom   Kind = "random"
	KindScenario Kind = "scenario"
	KindManual   Kind = "manual"
)

// Kinds lists the accepted variants.
func Kinds() []Kind {
	return []Kind{KindRandom, KindScenario, KindManual}
}

// KindList joins kinds with sep, for help and error text.
func KindList(kinds []Kind, sep string) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, sep)
}

// Options carries what each variant may need. Unused fields are ignored.
type Options struct {
	Schema model.Schema

	// Seed makes the random source reproducible. Zero draws from the
	// runtime's seeded generator.
	Seed uint64

	// ScenarioPath is the YAML scenario file for the scenario source.
	ScenarioPath string

	// In and Out are the terminal streams for the manual source.
	In  io.Reader
	Out io.Writer
}

// New builds a source by kind. It exists for the CLI; library callers
// construct variants directly.
func New(kind string, opts Options) (Source, error) {
	if opts.Schema == nil {
		opts.Schema = model.DefaultSchema()
	}
	switch Kind(strings.ToLower(strings.TrimSpace(kind))) {
	case KindRandom:
		var rng *rand.Rand
		if opts.Seed != 0 {
			rng = rand.New(rand.NewPCG(opts.Seed, opts.Seed))
		}
		return NewRandom(opts.Schema, rng)
	case KindScenario:
		if opts.ScenarioPath == "" {
			return nil, fmt.Errorf("source: scenario source needs a scenario file")
		}
		return LoadScenario(opts.ScenarioPath, opts.Schema)
	case KindManual:
		return NewManual(opts.Schema, opts.In, opts.Out)
	default:
		return nil, fmt.Errorf("source: unknown kind %q (want one of %s)", kind, KindList(Kinds(), ", "))
	}
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Stage is one step of a fulfillment run. Artifact stages produce or store
// the PDF and are skipped once an optional stage has failed.
type Stage struct {
	Name     string
	Optional bool
	Artifact bool
	Run      func(ctx context.Context) error
}

type Outcome struct {
	Degraded bool
	// FailedStage names the first optional stage that failed.
	FailedStage string
	Skipped     []string
}

// Pipeline runs stages in order. A failing required stage aborts the run
// with its error.
type Pipeline struct {
	name   string
	stages []Stage
}

func NewPipeline(name string, stages ...Stage) *Pipeline {
	return &Pipeline{name: name, stages: stages}
}

func (p *Pipeline) Run(ctx context.Context) (Outcome, error) {
	var out Outcome
	for _, stage := range p.stages {
		if out.Degraded && stage.Artifact {
			out.Skipped = append(out.Skipped, stage.Name)
			continue
		}

		start := time.Now()
		err := stage.Run(ctx)
		if err == nil {
			log.Debug().
				Str("pipeline", p.name).
				Str("stage", stage.Name).
				Dur("elapsed", time.Since(start)).
				Msg("stage done")
			continue
		}

		if !stage.Optional {
			return out, fmt.Errorf("%s: %s: %w", p.name, stage.Name, err)
		}

		log.Warn().
			Err(err).
			Str("pipeline", p.name).
			Str("stage", stage.Name).
			Msg("optional stage failed, continuing degraded")
		if !out.Degraded {
			out.Degraded = true
			out.FailedStage = stage.Name
		}
	}
	return out, nil
}

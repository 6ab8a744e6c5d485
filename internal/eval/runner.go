package eval

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// maxConcurrent bounds in-flight evaluations, purely to respect the
// model provider's rate limits.
const maxConcurrent = 3

// Asker answers one evaluation question.
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Scorer rates one answer against its case.
type Scorer interface {
	Score(ctx context.Context, c Case, answer string) (Scores, error)
}

// Runner drives the evaluation: asks and scores every case with at most
// maxConcurrent in flight, then returns results in input order.
type Runner struct {
	asker  Asker
	scorer Scorer
	log    zerolog.Logger
}

func NewRunner(asker Asker, scorer Scorer, log zerolog.Logger) *Runner {
	return &Runner{
		asker:  asker,
		scorer: scorer,
		log:    log.With().Str("component", "eval").Logger(),
	}
}

// Run evaluates all cases. Individual failures produce a Result with
// NaN scores rather than aborting the run.
func (r *Runner) Run(ctx context.Context, cases []Case) []Result {
	sem := semaphore.NewWeighted(maxConcurrent)
	results := make([]Result, len(cases))

	var wg sync.WaitGroup
	for i, c := range cases {
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = failedResult(i, c, err)
			continue
		}

		wg.Add(1)
		go func(i int, c Case) {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = r.evaluate(ctx, i, c)
		}(i, c)
	}
	wg.Wait()

	// Completion order is arbitrary; the report must follow the
	// dataset order.
	sort.Slice(results, func(a, b int) bool { return results[a].Index < results[b].Index })
	return results
}

func (r *Runner) evaluate(ctx context.Context, index int, c Case) Result {
	r.log.Info().Int("case", index).Str("question", c.Question).Msg("Evaluating case")

	answer, err := r.asker.Ask(ctx, c.Question)
	if err != nil {
		r.log.Error().Err(err).Int("case", index).Msg("Ask failed")
		return failedResult(index, c, err)
	}

	scores, err := r.scorer.Score(ctx, c, answer)
	if err != nil {
		r.log.Error().Err(err).Int("case", index).Msg("Scoring failed")
		result := failedResult(index, c, err)
		result.Answer = answer
		return result
	}

	return Result{
		Index:        index,
		Question:     c.Question,
		GroundTruth:  c.GroundTruth,
		Answer:       answer,
		Faithfulness: scores.Faithfulness,
		Relevance:    scores.Relevance,
	}
}

func failedResult(index int, c Case, err error) Result {
	return Result{
		Index:        index,
		Question:     c.Question,
		GroundTruth:  c.GroundTruth,
		Faithfulness: math.NaN(),
		Relevance:    math.NaN(),
		Err:          err.Error(),
	}
}

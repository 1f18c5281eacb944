package freerank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jmylchreest/summarize/internal/apperror"
)

const (
	// defaultMinParamsBillions is the "~27B" heuristic floor a candidate's
	// name/id must meet to be considered large enough to be worth probing.
	defaultMinParamsBillions = 27
	// DefaultMaxAgeDays is the refresh-free command's default for how
	// recently a candidate must have been added to OpenRouter's catalog; a
	// MaxAgeDays of 0 disables the age filter entirely.
	DefaultMaxAgeDays = 180
	// maxCandidates caps how many filtered models get probed, since probing
	// is the expensive, rate-limited step.
	maxCandidates = 10
	// minBackoff is the minimum sleep after a rate-limit response before
	// retrying, per the quantified invariant.
	minBackoff = 60 * time.Second
)

// Prober issues one real request against a candidate model id and reports
// whether it produced usable output. A rate-limit failure must be returned
// wrapped in apperror.RateLimit so the ranker knows to back off and retry
// rather than discard the candidate outright.
type Prober func(ctx context.Context, modelID string) error

// Options configures one refresh run. A zero MinParamsBillions falls back to
// the built-in floor; a zero MaxAgeDays disables the age filter.
type Options struct {
	MinParamsBillions float64
	MaxAgeDays        int
	Runs              int // additional probes beyond the first; total = 1+Runs
	Verbose           bool
}

func (o Options) withDefaults() Options {
	if o.MinParamsBillions == 0 {
		o.MinParamsBillions = defaultMinParamsBillions
	}
	return o
}

// Ranker discovers, filters, and probes OpenRouter's free-model catalog.
type Ranker struct {
	Catalog CatalogFetcher
	Probe   Prober
	Logger  *slog.Logger
	// now is overridable in tests; defaults to time.Now.
	now func() time.Time
	// backoff is overridable in tests; defaults to minBackoff.
	backoff time.Duration
}

// New returns a Ranker wired to fetch the catalog with fetcher and probe
// candidates with probe.
func New(fetcher CatalogFetcher, probe Prober, logger *slog.Logger) *Ranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ranker{Catalog: fetcher, Probe: probe, Logger: logger, now: time.Now, backoff: minBackoff}
}

// Refresh fetches the catalog, filters to eligible ":free" candidates, probes
// each with retries and rate-limit backoff, and returns the ones that
// survived probing, newest first. The caller is responsible for
// persisting the result under models.free.rules[0].candidates.
func (rk *Ranker) Refresh(ctx context.Context, opts Options) ([]string, error) {
	opts = opts.withDefaults()
	if opts.MaxAgeDays < 0 {
		return nil, fmt.Errorf("max age days must be >= 0, got %d", opts.MaxAgeDays)
	}

	models, err := rk.Catalog.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	candidates := rk.filter(models, opts)
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}

	var selected []string
	for _, m := range candidates {
		if rk.probeWithBackoff(ctx, m.ID, opts) {
			selected = append(selected, m.ID)
		}
	}
	return selected, nil
}

// filter keeps ":free" models meeting the parameter-count floor and age
// ceiling, sorted newest-first so probing spends its budget on the most
// recently added candidates first.
func (rk *Ranker) filter(models []CatalogModel, opts Options) []CatalogModel {
	cutoff := rk.now().AddDate(0, 0, -opts.MaxAgeDays).Unix()

	var kept []CatalogModel
	for _, m := range models {
		if !isFreeVariant(m.ID) {
			continue
		}
		if parameterCountBillions(m) < opts.MinParamsBillions {
			continue
		}
		if opts.MaxAgeDays > 0 && m.Created < cutoff {
			continue
		}
		kept = append(kept, m)
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Created > kept[j].Created })
	return kept
}

// probeWithBackoff runs 1+opts.Runs probes against modelID. A rate-limit
// error triggers exactly one sleep-and-retry of at least minBackoff; any
// other failure, or a second rate limit, drops the candidate.
func (rk *Ranker) probeWithBackoff(ctx context.Context, modelID string, opts Options) bool {
	attempts := 1 + opts.Runs
	succeeded := 0

	for i := 0; i < attempts; i++ {
		err := rk.Probe(ctx, modelID)
		if err == nil {
			succeeded++
			continue
		}

		if kind, ok := apperror.As(err); ok && kind == apperror.RateLimit {
			if opts.Verbose {
				rk.Logger.Info("rate limited, backing off", slog.String("model", modelID), slog.Duration("sleep", rk.backoff))
			}
			if !rk.sleep(ctx, rk.backoff) {
				return false
			}
			retryErr := rk.Probe(ctx, modelID)
			if retryErr == nil {
				succeeded++
				continue
			}
			rk.Logger.Warn("candidate failed after rate-limit retry", slog.String("model", modelID), slog.String("error", retryErr.Error()))
			return false
		}

		rk.Logger.Warn("candidate probe failed", slog.String("model", modelID), slog.String("error", err.Error()))
		return false
	}

	return succeeded == attempts
}

func (rk *Ranker) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// ErrNoCandidates is returned by callers that treat an empty refresh result
// as a hard failure (e.g. the CLI refusing to overwrite an existing
// candidate list with nothing).
var ErrNoCandidates = errors.New("no free-model candidates survived filtering and probing")

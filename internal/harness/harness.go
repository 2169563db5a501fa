package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/exp/rand"

	"github.com/roach88/bayesharness/internal/examples"
	"github.com/roach88/bayesharness/internal/infer"
	"github.com/roach88/bayesharness/internal/metrics"
	"github.com/roach88/bayesharness/internal/model"
	"github.com/roach88/bayesharness/internal/testutil"
	"github.com/roach88/bayesharness/internal/trace"
)

// DefaultSeed seeds scenarios that set none.
const DefaultSeed uint64 = 20090425

// Options configures a Harness. The zero value is usable.
type Options struct {
	// Seed is used by scenarios that set none. Zero means DefaultSeed.
	Seed uint64

	// Backend is used by scenarios that set none. Empty means memory.
	Backend trace.Kind

	// TraceDir holds file-backed stores. Empty means a temporary
	// directory removed after the run.
	TraceDir string

	// IncludeDisabled runs examples the catalog marks disabled.
	IncludeDisabled bool

	Logger  *slog.Logger
	Metrics *metrics.Harness
	Sampler *metrics.Sampler
}

// Harness runs scenarios against the example catalog.
type Harness struct {
	opts   Options
	logger *slog.Logger
}

// New returns a harness. Logs are discarded unless opts.Logger is set.
func New(opts Options) *Harness {
	if opts.Seed == 0 {
		opts.Seed = DefaultSeed
	}
	if opts.Backend == "" {
		opts.Backend = trace.KindMemory
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Harness{opts: opts, logger: logger}
}

// Run executes a scenario with a new Harness.
func Run(ctx context.Context, scenario *Scenario, opts Options) (*Result, error) {
	return New(opts).Run(ctx, scenario)
}

// execution is one pass through build and inference.
type execution struct {
	compiled *model.Compiled
	plan     examples.Plan
	outcome  *examples.Outcome
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Fresh: the seed is fixed and the example is looked up
//  2. ModelBuilt: the seeded source simulates data and the model compiles
//  3. InferenceRun: the plan runs with a seed derived from the same source
//  4. Verified: every assertion holds
//
// Failures of the model or the sampler fail the scenario. The returned
// error is reserved for problems outside the scenario, such as an unknown
// example or a canceled context.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	result := NewResult(scenario)
	result.Seed = h.seed(scenario)
	result.RunID = testutil.NewFixedRunID(scenario.RunID).Generate()

	ex, err := examples.Lookup(scenario.Example)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	reason := scenario.Skip
	if reason == "" && ex.Disabled != "" && !h.opts.IncludeDisabled {
		reason = ex.Disabled
	}
	if reason != "" {
		result.Skipped = true
		result.SkipReason = reason
		h.finish(result, 0)
		return result, nil
	}

	start := time.Now()
	exec, err := h.execute(ctx, scenario, ex, result)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, ctxErr)
		}
		result.AddError(err.Error())
		h.finish(result, time.Since(start))
		return result, nil
	}

	actx := &assertionContext{
		ctx:      ctx,
		harness:  h,
		scenario: scenario,
		example:  ex,
		exec:     exec,
		result:   result,
	}
	for _, msg := range evaluateAssertions(actx, scenario.Assertions) {
		result.AddError(msg)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	if result.Pass {
		result.Stage = StageVerified
	}
	h.finish(result, time.Since(start))
	return result, nil
}

func (h *Harness) finish(result *Result, elapsed time.Duration) {
	h.opts.Metrics.Scenario(result.Outcome())
	h.logger.Info("scenario finished",
		"scenario", result.Scenario,
		"outcome", result.Outcome(),
		"stage", result.Stage.String(),
		"elapsed", elapsed,
	)
	for _, msg := range result.Errors {
		h.logger.Debug("scenario error", "scenario", result.Scenario, "error", msg)
	}
}

func (h *Harness) seed(s *Scenario) uint64 {
	if s.Seed != nil {
		return *s.Seed
	}
	return h.opts.Seed
}

// execute builds the example and runs its plan. result is advanced through
// the stages as they complete.
func (h *Harness) execute(ctx context.Context, s *Scenario, ex examples.Example, result *Result) (*execution, error) {
	return h.executeWith(ctx, s, ex, h.backend(s), result)
}

func (h *Harness) executeWith(ctx context.Context, s *Scenario, ex examples.Example, backend trace.Kind, result *Result) (*execution, error) {
	src := rand.NewSource(result.Seed)
	m, plan, err := ex.Build(src)
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}
	c, err := m.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile model: %w", err)
	}
	result.Stage = StageModelBuilt

	var drawsOverride *int
	if s.Draws > 0 {
		drawsOverride = &s.Draws
	}
	draws, tune := plan.Length(drawsOverride, s.Tune)

	store, cleanup, err := h.openStore(s.Name, backend)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	out, err := examples.Run(ctx, c, plan, infer.SampleConfig{
		Draws:   draws,
		Tune:    tune,
		Seed:    src.Uint64(),
		RunID:   result.RunID,
		Store:   store,
		Metrics: h.opts.Sampler,
		Logger:  h.logger,
	})
	if err != nil {
		return nil, err
	}
	result.Stage = StageInferenceRun
	result.Trace = out.Trace
	result.MAP = out.MAP
	result.Draws = out.Trace.Len()
	result.Digest = out.Trace.Digest()
	return &execution{compiled: c, plan: plan, outcome: out}, nil
}

func (h *Harness) backend(s *Scenario) trace.Kind {
	if s.Backend == "" {
		return h.opts.Backend
	}
	// The schema has already restricted the name.
	k, _ := trace.ParseKind(s.Backend)
	return k
}

// openStore opens a fresh store of kind for one run. cleanup removes
// temporary directories; the store itself is closed by the sampler.
func (h *Harness) openStore(name string, kind trace.Kind) (trace.Store, func(), error) {
	if kind == trace.KindMemory {
		return trace.NewMemory(), func() {}, nil
	}
	dir, cleanup, err := h.runDir(name)
	if err != nil {
		return nil, nil, err
	}
	store, err := trace.Open(kind, storePath(dir, kind), trace.WithLogger(h.logger))
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("open %s trace store: %w", kind, err)
	}
	return store, cleanup, nil
}

// runDir creates a directory for one run's store, under TraceDir when set.
func (h *Harness) runDir(name string) (string, func(), error) {
	pattern := strings.ReplaceAll(name, string(filepath.Separator), "_") + "-*"
	if h.opts.TraceDir != "" {
		if err := os.MkdirAll(h.opts.TraceDir, 0o755); err != nil {
			return "", nil, fmt.Errorf("create trace directory: %w", err)
		}
		dir, err := os.MkdirTemp(h.opts.TraceDir, pattern)
		if err != nil {
			return "", nil, fmt.Errorf("create trace directory: %w", err)
		}
		return dir, func() {}, nil
	}
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		return "", nil, fmt.Errorf("create trace directory: %w", err)
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

func storePath(dir string, kind trace.Kind) string {
	if kind == trace.KindBadger {
		return filepath.Join(dir, "trace.badger")
	}
	return filepath.Join(dir, "trace.db")
}

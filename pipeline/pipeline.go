// Package pipeline orchestrates processing runs: gather assets by ID or
// query, apply the business rules, and push the resulting updates with
// per-asset failure isolation.
package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seaward/assetctl/errors"
	"github.com/seaward/assetctl/jira"
	"github.com/seaward/assetctl/processor"
)

// Status classifies the outcome of processing one asset.
type Status string

const (
	StatusUnchanged Status = "unchanged"
	StatusUpdated   Status = "updated"
	StatusFailed    Status = "failed"
)

// Outcome is the per-asset result of a run.
type Outcome struct {
	AssetID string   `json:"asset_id"`
	Status  Status   `json:"status"`
	Changed []string `json:"changed,omitempty"`
	Err     error    `json:"-"`
	Error   string   `json:"error,omitempty"`
}

// Report is the full account of one processing run. Outcomes keep the order
// assets were gathered in, one entry per asset, failures included.
type Report struct {
	RunID    string    `json:"run_id"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Outcomes []Outcome `json:"outcomes"`
}

// Counts tallies the report by status.
func (r *Report) Counts() (updated, unchanged, failed int) {
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusUpdated:
			updated++
		case StatusUnchanged:
			unchanged++
		case StatusFailed:
			failed++
		}
	}
	return
}

// Options selects what a run covers and how it behaves.
type Options struct {
	// IDs processes an explicit asset list; Query processes AQL results.
	// Exactly one should be set.
	IDs   []string
	Query string
	Limit int // cap on query results, 0 = no cap

	// RefreshCache forces a schema re-fetch, once per distinct object
	// type, before any asset is mapped.
	RefreshCache bool

	// RecalculateBuyout overrides stored buyout prices.
	RecalculateBuyout bool

	// Workers bounds the concurrent update stage. Values below 1 run
	// sequentially.
	Workers int
}

// Runner executes processing runs against one client and policy.
type Runner struct {
	client *jira.Client
	logger *zap.SugaredLogger

	mu     sync.RWMutex
	policy *processor.Policy
}

// NewRunner creates a runner. The policy can be swapped later via
// UpdatePolicy, which webhook mode uses for hot reloads.
func NewRunner(client *jira.Client, policy *processor.Policy, logger *zap.SugaredLogger) *Runner {
	return &Runner{client: client, logger: logger, policy: policy}
}

// UpdatePolicy atomically replaces the policy used by subsequent runs.
// Runs already in progress keep the policy they started with.
func (r *Runner) UpdatePolicy(policy *processor.Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policy = policy
}

func (r *Runner) currentPolicy() *processor.Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.policy
}

// Run executes one processing run. An authentication failure aborts the
// run, since every further call would fail the same way; outcomes for
// assets already processed are preserved and the remaining gathered assets
// are reported as failed with that error.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	report := &Report{
		RunID:   uuid.NewString(),
		Started: time.Now().UTC(),
	}
	r.logger.Infow("Processing run started",
		"run_id", report.RunID,
		"ids", len(opts.IDs),
		"query", opts.Query,
		"refresh_cache", opts.RefreshCache,
		"recalculate", opts.RecalculateBuyout)

	assets, gathered, err := r.gather(ctx, opts)
	report.Outcomes = append(report.Outcomes, gathered...)
	if err != nil {
		report.Finished = time.Now().UTC()
		return report, err
	}

	if opts.RefreshCache {
		if err := r.refreshSchemas(ctx, assets); err != nil {
			report.Finished = time.Now().UTC()
			return report, err
		}
	}

	proc := processor.New(r.currentPolicy(), opts.RecalculateBuyout, r.logger)
	today := time.Now().UTC()

	outcomes := r.processAll(ctx, proc, assets, today, opts.Workers)
	report.Outcomes = append(report.Outcomes, outcomes...)
	report.Finished = time.Now().UTC()

	updated, unchanged, failed := report.Counts()
	r.logger.Infow("Processing run finished",
		"run_id", report.RunID,
		"updated", updated,
		"unchanged", unchanged,
		"failed", failed)
	return report, nil
}

// gather collects the assets the run covers. Retrieval failures become
// failed outcomes immediately; assets that loaded go on to processing.
func (r *Runner) gather(ctx context.Context, opts Options) ([]*jira.Asset, []Outcome, error) {
	if len(opts.IDs) > 0 {
		var assets []*jira.Asset
		var failures []Outcome
		for _, res := range r.client.GetObjects(ctx, opts.IDs) {
			if res.Err != nil {
				failures = append(failures, failedOutcome(res.ID, res.Err))
				continue
			}
			assets = append(assets, res.Asset)
		}
		return assets, failures, nil
	}

	var assets []*jira.Asset
	it := r.client.Query(ctx, opts.Query, 0)
	for it.Next() {
		assets = append(assets, it.Asset())
		if opts.Limit > 0 && len(assets) >= opts.Limit {
			break
		}
	}
	if err := it.Err(); err != nil {
		return nil, nil, err
	}
	return assets, nil, nil
}

// refreshSchemas re-fetches the schema once per distinct object type in the
// batch, so every asset maps against the same fresh snapshot.
func (r *Runner) refreshSchemas(ctx context.Context, assets []*jira.Asset) error {
	seen := make(map[string]bool)
	for _, a := range assets {
		if seen[a.TypeName] {
			continue
		}
		seen[a.TypeName] = true
		if err := r.client.Schemas().Refresh(ctx, a.TypeName); err != nil {
			return errors.Wrapf(err, "schema refresh failed for object type %s", a.TypeName)
		}
	}
	return nil
}

// processAll runs the rule-and-update stage over the gathered assets with a
// bounded worker pool, keeping outcome order aligned with asset order.
func (r *Runner) processAll(ctx context.Context, proc *processor.Processor, assets []*jira.Asset, today time.Time, workers int) []Outcome {
	if workers < 1 {
		workers = 1
	}
	outcomes := make([]Outcome, len(assets))

	// aborted flips once an auth failure is seen; workers then stop
	// issuing requests and report the failure for their remaining assets.
	var aborted sync.Once
	var authErr error
	var authMu sync.RWMutex

	fatal := func() error {
		authMu.RLock()
		defer authMu.RUnlock()
		return authErr
	}

	var wg sync.WaitGroup
	work := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				if err := fatal(); err != nil {
					outcomes[i] = failedOutcome(assets[i].ID, err)
					continue
				}
				outcome := r.processOne(ctx, proc, assets[i], today)
				outcomes[i] = outcome
				if outcome.Err != nil && errors.IsAuthError(outcome.Err) {
					aborted.Do(func() {
						authMu.Lock()
						authErr = outcome.Err
						authMu.Unlock()
						r.logger.Errorw("Authentication failure, aborting run", "error", outcome.Err)
					})
				}
			}
		}()
	}
	for i := range assets {
		work <- i
	}
	close(work)
	wg.Wait()
	return outcomes
}

// processOne applies the rules to a single asset and pushes the diff.
func (r *Runner) processOne(ctx context.Context, proc *processor.Processor, asset *jira.Asset, today time.Time) Outcome {
	changes := proc.Changes(asset, today)
	if len(changes) == 0 {
		return Outcome{AssetID: asset.ID, Status: StatusUnchanged}
	}

	raw := make(map[string]string, len(changes))
	changed := make([]string, 0, len(changes))
	for name, v := range changes {
		raw[name] = v.Raw()
		changed = append(changed, name)
	}
	sort.Strings(changed)

	_, wrote, err := r.client.UpdateObject(ctx, asset.ID, raw)
	if err != nil {
		return failedOutcome(asset.ID, err)
	}
	if !wrote {
		return Outcome{AssetID: asset.ID, Status: StatusUnchanged}
	}
	return Outcome{AssetID: asset.ID, Status: StatusUpdated, Changed: changed}
}

func failedOutcome(id string, err error) Outcome {
	return Outcome{AssetID: id, Status: StatusFailed, Err: err, Error: err.Error()}
}

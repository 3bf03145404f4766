// Package updater drives the per-dashboard update pipeline: fetch, back up,
// rewrite refresh rates and persist. A failure is recorded against its
// dashboard and never stops the rest of the batch.
package updater

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/AD7six/chart-refresh-updater/internal/config"
	"github.com/AD7six/chart-refresh-updater/internal/dashboard"
	"github.com/AD7six/chart-refresh-updater/internal/logging"
)

// DashboardClient reads and writes remote dashboards.
type DashboardClient interface {
	Fetch(ctx context.Context, guid string) (dashboard.Document, error)
	Persist(ctx context.Context, guid string, input dashboard.Document) error
}

// BackupWriter stores a snapshot of a dashboard and returns where it went.
type BackupWriter interface {
	Write(guid string, doc dashboard.Document) (string, error)
}

// Updater runs update requests against a DashboardClient.
type Updater struct {
	client      DashboardClient
	backups     BackupWriter
	concurrency int
	logger      *slog.Logger
}

// Option customises an Updater.
type Option func(*Updater)

// WithBackups enables snapshots before each update. Without it the
// BackingUp stage is skipped.
func WithBackups(w BackupWriter) Option {
	return func(u *Updater) { u.backups = w }
}

// WithConcurrency processes up to n dashboards at a time.
func WithConcurrency(n int) Option {
	return func(u *Updater) {
		if n > 0 {
			u.concurrency = n
		}
	}
}

// WithLogger sets the logger for progress and failures.
func WithLogger(l *slog.Logger) Option {
	return func(u *Updater) { u.logger = l }
}

// New returns an Updater that processes dashboards one at a time.
func New(client DashboardClient, opts ...Option) *Updater {
	u := &Updater{
		client:      client,
		concurrency: 1,
		logger:      logging.Logger,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Run processes every request and returns a summary ordered like requests.
//
// With a concurrency of 1 the requests are handled strictly in order.
// Otherwise independent dashboards run in parallel, while requests that share
// a GUID still run one after another in list order, so the last one in the
// list is the one left in place remotely.
//
// Once ctx is canceled no new request is started; those left are reported as
// canceled.
func (u *Updater) Run(ctx context.Context, requests []config.UpdateRequest) *Summary {
	results := make([]Result, len(requests))

	if u.concurrency <= 1 {
		for i, req := range requests {
			results[i] = u.process(ctx, req)
		}
		return &Summary{Results: results}
	}

	var g errgroup.Group
	g.SetLimit(u.concurrency)
	for _, chain := range chainsByGUID(requests) {
		chain := chain
		g.Go(func() error {
			for _, i := range chain {
				results[i] = u.process(ctx, requests[i])
			}
			return nil
		})
	}
	// Workers only report through results
	_ = g.Wait()

	return &Summary{Results: results}
}

// chainsByGUID groups request indexes by GUID, keeping list order within
// each group and ordering groups by first appearance.
func chainsByGUID(requests []config.UpdateRequest) [][]int {
	pos := make(map[string]int)
	var chains [][]int
	for i, req := range requests {
		p, ok := pos[req.GUID]
		if !ok {
			p = len(chains)
			pos[req.GUID] = p
			chains = append(chains, nil)
		}
		chains[p] = append(chains[p], i)
	}
	return chains
}

package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AD7six/chart-refresh-updater/internal/config"
	"github.com/AD7six/chart-refresh-updater/internal/dashboard"
)

// State is a step of the per-dashboard pipeline.
type State int

const (
	Fetching State = iota
	BackingUp
	Mutating
	Persisting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Fetching:
		return "fetching"
	case BackingUp:
		return "backing-up"
	case Mutating:
		return "mutating"
	case Persisting:
		return "persisting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) terminal() bool {
	return s == Succeeded || s == Failed
}

// pipeline carries one request through the states.
type pipeline struct {
	req      config.UpdateRequest
	original dashboard.Document
	input    dashboard.Document
	result   Result
	logger   *slog.Logger
}

func (u *Updater) process(ctx context.Context, req config.UpdateRequest) Result {
	start := time.Now()
	p := &pipeline{
		req:    req,
		result: Result{Request: req},
		logger: u.logger.With("guid", req.GUID),
	}
	p.logger.Info("processing dashboard", "refresh_rate_ms", req.RefreshRate)

	state := Fetching
	for !state.terminal() {
		p.logger.Debug("entering state", "state", state)
		next, err := u.step(ctx, p, state)
		if err != nil {
			p.result.FailedIn = state
			p.result.Kind = classify(ctx, err)
			p.result.Err = err
			p.logger.Error("dashboard update failed", "state", state, "kind", p.result.Kind, "error", err)
			next = Failed
		}
		state = next
	}

	p.result.State = state
	p.result.Duration = time.Since(start)
	if state == Succeeded {
		p.logger.Info("dashboard updated", "name", p.result.Name, "widgets", p.result.Widgets, "duration", p.result.Duration)
	}
	return p.result
}

// step performs the work of state and returns the state to move to.
func (u *Updater) step(ctx context.Context, p *pipeline, state State) (State, error) {
	switch state {
	case Fetching:
		if err := ctx.Err(); err != nil {
			return Failed, err
		}
		doc, err := u.client.Fetch(ctx, p.req.GUID)
		if err != nil {
			return Failed, err
		}
		p.original = doc
		p.result.Name = dashboard.Name(doc)
		if u.backups == nil {
			p.logger.Debug("backups disabled, skipping snapshot")
			return Mutating, nil
		}
		return BackingUp, nil

	case BackingUp:
		path, err := u.backups.Write(p.req.GUID, p.original)
		if err != nil {
			return Failed, err
		}
		p.result.BackupPath = path
		p.logger.Info("backup written", "path", path)
		return Mutating, nil

	case Mutating:
		updated, err := dashboard.ApplyRefreshRate(p.original, p.req.RefreshRate)
		if err != nil {
			return Failed, err
		}
		input, err := dashboard.ToInput(updated)
		if err != nil {
			return Failed, err
		}
		widgets, err := dashboard.CountWidgets(input)
		if err != nil {
			return Failed, err
		}
		if widgets == 0 {
			p.logger.Info("dashboard has no widgets")
		}
		p.input = input
		p.result.Widgets = widgets
		return Persisting, nil

	case Persisting:
		if err := u.client.Persist(ctx, p.req.GUID, p.input); err != nil {
			return Failed, err
		}
		return Succeeded, nil
	}

	return Failed, fmt.Errorf("unexpected pipeline state %v", state)
}

// classify maps an error to the Kind recorded in the summary.
func classify(ctx context.Context, err error) Kind {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return KindCanceled
	}
	switch {
	case errors.As(err, new(*dashboard.MutationError)):
		return KindMutation
	case isBackupError(err):
		return KindBackup
	case isRemoteError(err):
		return KindRemote
	}
	return KindUnknown
}

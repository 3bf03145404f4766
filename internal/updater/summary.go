package updater

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AD7six/chart-refresh-updater/internal/backup"
	"github.com/AD7six/chart-refresh-updater/internal/config"
	"github.com/AD7six/chart-refresh-updater/internal/nerdgraph"
)

// Kind classifies why a dashboard failed.
type Kind string

const (
	KindRemote   Kind = "RemoteError"
	KindBackup   Kind = "BackupError"
	KindMutation Kind = "MutationError"
	KindCanceled Kind = "Canceled"
	KindUnknown  Kind = "Unknown"
)

func isBackupError(err error) bool {
	return errors.As(err, new(*backup.Error))
}

func isRemoteError(err error) bool {
	return errors.As(err, new(*nerdgraph.RemoteError))
}

// Result is the outcome for one update request.
type Result struct {
	Request    config.UpdateRequest
	State      State // Succeeded or Failed
	FailedIn   State // state that failed, meaningful only when State is Failed
	Kind       Kind
	Err        error
	Name       string // dashboard name, when it was fetched
	BackupPath string
	Widgets    int
	Duration   time.Duration
}

// Succeeded reports whether the dashboard was persisted.
func (r Result) Succeeded() bool {
	return r.State == Succeeded
}

// Status is a short label for reports.
func (r Result) Status() string {
	if r.Succeeded() {
		return "OK"
	}
	switch r.Kind {
	case KindRemote:
		if errors.Is(r.Err, nerdgraph.ErrNotFound) {
			return "NOT FOUND"
		}
		return "API ERROR"
	case KindBackup:
		return "BACKUP ERROR"
	case KindMutation:
		return "INVALID"
	case KindCanceled:
		return "CANCELED"
	default:
		return "ERROR"
	}
}

// Summary aggregates the results of a run, in request order.
type Summary struct {
	Results []Result
}

// Succeeded counts successful results.
func (s *Summary) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.Succeeded() {
			n++
		}
	}
	return n
}

// Failed counts failed results.
func (s *Summary) Failed() int {
	return len(s.Results) - s.Succeeded()
}

// Failures returns the failed results in request order.
func (s *Summary) Failures() []Result {
	var out []Result
	for _, r := range s.Results {
		if !r.Succeeded() {
			out = append(out, r)
		}
	}
	return out
}

// Err returns an error when at least one dashboard failed.
func (s *Summary) Err() error {
	if failed := s.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d dashboard updates failed", failed, len(s.Results))
	}
	return nil
}

// Report logs one line per dashboard followed by the totals.
func (s *Summary) Report(logger *slog.Logger) {
	for _, r := range s.Results {
		if r.Succeeded() {
			logger.Info("result", "guid", r.Request.GUID, "status", r.Status(), "refresh_rate_ms", r.Request.RefreshRate, "backup", r.BackupPath)
			continue
		}
		logger.Error("result", "guid", r.Request.GUID, "status", r.Status(), "state", r.FailedIn, "kind", r.Kind, "reason", r.Err)
	}
	logger.Info("summary", "total", len(s.Results), "succeeded", s.Succeeded(), "failed", s.Failed())
}

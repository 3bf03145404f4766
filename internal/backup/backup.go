// Package backup writes point-in-time snapshots of dashboards to local disk
// before they are modified. Restoring a snapshot is a manual process.
package backup

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/AD7six/chart-refresh-updater/internal/dashboard"
	"github.com/AD7six/chart-refresh-updater/internal/storage"
)

// timestampLayout is YYYYmmdd_HHMMSS.
const timestampLayout = "20060102_150405"

// Error reports a backup that could not be written.
type Error struct {
	GUID string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to back up dashboard %s to %s: %v", e.GUID, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Writer writes dashboard snapshots into Dir.
type Writer struct {
	Dir string
	Now func() time.Time
}

// NewWriter returns a Writer for dir using the wall clock.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, Now: time.Now}
}

// FileName returns the backup file name for guid taken at t, e.g.
// dashboard_12345_20251013_103000.json. t is converted to UTC.
func FileName(guid string, t time.Time) string {
	return fmt.Sprintf("dashboard_%s_%s.json", storage.SafeFileComponent(guid), t.UTC().Format(timestampLayout))
}

// Write stores doc exactly as given and returns the file path. The directory
// is created if needed. Two writes for the same guid within one second share
// a file name, and the later one replaces the earlier.
func (w *Writer) Write(guid string, doc dashboard.Document) (string, error) {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}

	path := filepath.Join(w.Dir, FileName(guid, now()))
	if w.Dir == "" {
		return "", &Error{GUID: guid, Path: path, Err: fmt.Errorf("backup directory must not be empty")}
	}
	if err := storage.WriteJSONFile(path, doc); err != nil {
		return "", &Error{GUID: guid, Path: path, Err: err}
	}
	return path, nil
}

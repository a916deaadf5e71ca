package state

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/farmaciaslf/medisync/pkg/constants"
	"github.com/farmaciaslf/medisync/pkg/errors"
)

// Lock is a filesystem mutual-exclusion marker. Presence means a sync is in
// flight; the file content is the acquisition timestamp, informational only.
type Lock struct {
	path string
}

// NewLock creates a lock at path, defaulting to the standard location.
func NewLock(path string) *Lock {
	if path == "" {
		path = constants.DefaultLockPath
	}
	return &Lock{path: path}
}

// Path returns the marker location.
func (l *Lock) Path() string {
	return l.path
}

// Acquire creates the marker. It fails fast if a marker already exists: this
// is a single-flight guarantee, not a queueing mechanism. A process that dies
// without releasing leaves the marker behind; operators clear it with
// ForceClear.
func (l *Lock) Acquire() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		if os.IsExist(err) {
			return &errors.LockError{Path: l.path, Since: l.since()}
		}
		return errors.WrapIO("create", l.path, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(strconv.FormatInt(time.Now().Unix(), 10)); err != nil {
		return errors.WrapIO("write", l.path, err)
	}
	return nil
}

// Release removes the marker. Releasing an absent marker is not an error, so
// Release is safe on every exit path.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return errors.WrapIO("delete", l.path, err)
	}
	return nil
}

// ForceClear removes a stale marker left behind by a dead process. It reports
// whether a marker was actually present.
func (l *Lock) ForceClear() (bool, error) {
	if !l.Held() {
		return false, nil
	}
	return true, l.Release()
}

// Held reports whether the marker currently exists.
func (l *Lock) Held() bool {
	_, err := os.Stat(l.path)
	return err == nil
}

// since reads the acquisition timestamp out of an existing marker.
func (l *Lock) since() time.Time {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return time.Time{}
	}
	unix, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}

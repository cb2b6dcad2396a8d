package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// AcquireLock creates the advisory backup lock file, failing if one
// already exists — WAL checkpointing refuses to run while another
// writer holds it.
func (w *Workspace) AcquireLock() error {
	path := w.LockPath()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("workspace locked: %s already exists", path)
		}
		return err
	}
	return f.Close()
}

// ReleaseLock removes the advisory backup lock file.
func (w *Workspace) ReleaseLock() error {
	err := os.Remove(w.LockPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// WaitQuiescent blocks until the advisory lock file is removed or ctx
// is cancelled, so a backup/checkpoint tool can wait for other writers
// to finish rather than polling.
func (w *Workspace) WaitQuiescent(ctx context.Context) error {
	path := w.LockPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	for {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-watcher.Events:
			if event.Name == path && (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) {
				return nil
			}
		case err := <-watcher.Errors:
			if err != nil {
				return err
			}
		}
	}
}

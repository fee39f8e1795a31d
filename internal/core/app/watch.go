package app

import "codelens/internal/core/watcher"

// StartWatcher watches the project root and passes debounced batches of
// changed paths to onChange. The caller decides where re-indexing runs.
func (a *App) StartWatcher(onChange func([]string)) error {
	w, err := watcher.NewWatcher(a.Config.Watch.Debounce, a.Index.Filter(), onChange)
	if err != nil {
		return err
	}
	if err := w.Watch([]string{a.Index.Root()}); err != nil {
		_ = w.Close()
		return err
	}
	a.watchMu.Lock()
	a.activeWatcher = w
	a.watchMu.Unlock()
	a.logger.Info("watching project", "root", a.Index.Root(), "debounce", a.Config.Watch.Debounce)
	return nil
}

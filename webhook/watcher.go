package webhook

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/seaward/assetctl/errors"
	"github.com/seaward/assetctl/processor"
)

// PolicyWatcher watches the buyout policy file and reloads it on change, so
// a running webhook server picks up new depreciation tables without a
// restart. Rapid successive writes are debounced; a file that fails to
// parse leaves the previous policy in effect.
type PolicyWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *zap.SugaredLogger

	mu             sync.Mutex
	callbacks      []func(*processor.Policy)
	debounceTimer  *time.Timer
	debouncePeriod time.Duration
}

// NewPolicyWatcher creates a watcher over the policy file at path.
func NewPolicyWatcher(path string, logger *zap.SugaredLogger) (*PolicyWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create policy watcher")
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, errors.Wrapf(err, "failed to watch policy file %s", path)
	}
	return &PolicyWatcher{
		path:           path,
		watcher:        watcher,
		logger:         logger,
		debouncePeriod: 500 * time.Millisecond,
	}, nil
}

// OnReload registers a callback invoked with each successfully reloaded
// policy.
func (pw *PolicyWatcher) OnReload(callback func(*processor.Policy)) {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	pw.callbacks = append(pw.callbacks, callback)
}

// Start begins watching in the background.
func (pw *PolicyWatcher) Start() {
	go pw.watchLoop()
}

// Stop stops the watcher.
func (pw *PolicyWatcher) Stop() error {
	return pw.watcher.Close()
}

func (pw *PolicyWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				pw.logger.Infow("Policy file changed", "file", event.Name, "op", event.Op.String())
				pw.scheduleReload()
			}
		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			pw.logger.Warnw("Policy watcher error", "error", err)
		}
	}
}

func (pw *PolicyWatcher) scheduleReload() {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}
	pw.debounceTimer = time.AfterFunc(pw.debouncePeriod, pw.reload)
}

func (pw *PolicyWatcher) reload() {
	policy, err := processor.Load(pw.path)
	if err != nil {
		pw.logger.Errorw("Policy reload failed, keeping previous policy",
			"path", pw.path, "error", err)
		return
	}
	pw.logger.Infow("Policy reloaded", "path", pw.path, "version", policy.Version)

	pw.mu.Lock()
	callbacks := make([]func(*processor.Policy), len(pw.callbacks))
	copy(callbacks, pw.callbacks)
	pw.mu.Unlock()

	for _, callback := range callbacks {
		callback(policy)
	}
}

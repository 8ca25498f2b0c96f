package watcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher monitors source files under a project root and reports
// changes in debounced, deduplicated batches.
type FileWatcher interface {
	// Start begins watching, invoking callback with batches of changed
	// absolute paths once the debounce window closes.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop shuts the watcher down and releases its resources.
	Stop() error

	// Pause keeps accumulating events but stops firing callbacks.
	Pause()

	// Resume re-enables callbacks, firing immediately if changes
	// accumulated while paused.
	Resume()
}

// fileWatcher implements FileWatcher on top of fsnotify.
type fileWatcher struct {
	watcher    *fsnotify.Watcher
	root       string
	extensions map[string]bool
	ignoreDir  func(relPath string) bool

	debounce time.Duration
	callback func(files []string)

	ctx    context.Context
	cancel context.CancelFunc

	paused   bool
	pausedMu sync.RWMutex

	pending   map[string]bool
	pendingMu sync.Mutex

	timer   *time.Timer
	timerMu sync.Mutex

	stopOnce sync.Once
	doneCh   chan struct{}
}

// NewFileWatcher creates a watcher for source files under root. Only events
// for paths with one of the given extensions (with leading dot) are
// reported. ignoreDir, when non-nil, is consulted with root-relative
// directory paths; matching directories are never watched.
func NewFileWatcher(root string, extensions []string, ignoreDir func(relPath string) bool) (FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	extMap := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		extMap[ext] = true
	}

	fw := &fileWatcher{
		watcher:    w,
		root:       root,
		extensions: extMap,
		ignoreDir:  ignoreDir,
		debounce:   500 * time.Millisecond,
		pending:    make(map[string]bool),
		doneCh:     make(chan struct{}),
	}

	if err := fw.watchRecursively(root); err != nil {
		w.Close()
		return nil, err
	}

	return fw, nil
}

// Start launches the event loop. The callback runs on the watcher goroutine,
// so it must not block for long.
func (fw *fileWatcher) Start(ctx context.Context, callback func(files []string)) error {
	if callback == nil {
		return fmt.Errorf("watch callback is required")
	}

	fw.callback = callback
	fw.ctx, fw.cancel = context.WithCancel(ctx)

	go fw.watch()
	return nil
}

// Stop is idempotent and waits for the event loop to exit.
func (fw *fileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		if fw.cancel != nil {
			fw.cancel()
			<-fw.doneCh
		} else {
			// Start was never called, nothing else closes doneCh.
			close(fw.doneCh)
		}
		err = fw.watcher.Close()
	})
	return err
}

func (fw *fileWatcher) Pause() {
	fw.pausedMu.Lock()
	defer fw.pausedMu.Unlock()
	fw.paused = true
}

// Resume fires on the caller's goroutine when changes accumulated during
// the pause.
func (fw *fileWatcher) Resume() {
	fw.pausedMu.Lock()
	wasPaused := fw.paused
	fw.paused = false
	fw.pausedMu.Unlock()

	if !wasPaused {
		return
	}
	if files := fw.drainPending(); files != nil {
		fw.callback(files)
	}
}

// watch is the event loop. It exits when the context is cancelled or the
// underlying watcher closes.
func (fw *fileWatcher) watch() {
	defer close(fw.doneCh)

	rescanCh := make(chan struct{}, 1)

	for {
		select {
		case <-fw.ctx.Done():
			fw.stopTimer()
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			// New directories join the watch set unless ignored.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !fw.ignored(fw.relPath(event.Name)) {
						if err := fw.watchRecursively(event.Name); err != nil {
							log.Printf("Warning: failed to watch new directory %s: %v", event.Name, err)
						}
					}
				}
			}

			if !fw.wantsEvent(event) {
				continue
			}

			fw.pendingMu.Lock()
			fw.pending[event.Name] = true
			fw.pendingMu.Unlock()

			fw.resetTimer(rescanCh)

		case <-rescanCh:
			fw.flushPending()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("File watcher error: %v", err)
		}
	}
}

// flushPending fires the callback with the accumulated batch unless paused;
// while paused changes keep accumulating for Resume to deliver.
func (fw *fileWatcher) flushPending() {
	fw.pausedMu.RLock()
	paused := fw.paused
	fw.pausedMu.RUnlock()
	if paused {
		return
	}

	if files := fw.drainPending(); files != nil {
		fw.callback(files)
	}
}

// drainPending removes and returns the accumulated batch, nil when empty.
func (fw *fileWatcher) drainPending() []string {
	fw.pendingMu.Lock()
	defer fw.pendingMu.Unlock()

	if len(fw.pending) == 0 {
		return nil
	}
	files := make([]string, 0, len(fw.pending))
	for file := range fw.pending {
		files = append(files, file)
	}
	fw.pending = make(map[string]bool)
	return files
}

// resetTimer restarts the debounce window. A timer that already fired has
// sent its signal; the next flush simply happens early.
func (fw *fileWatcher) resetTimer(rescanCh chan struct{}) {
	fw.timerMu.Lock()
	defer fw.timerMu.Unlock()

	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(fw.debounce, func() {
		select {
		case rescanCh <- struct{}{}:
		default:
		}
	})
}

func (fw *fileWatcher) stopTimer() {
	fw.timerMu.Lock()
	defer fw.timerMu.Unlock()

	if fw.timer != nil {
		fw.timer.Stop()
		fw.timer = nil
	}
}

// wantsEvent reports whether an event concerns a monitored source file.
// Renames surface as a Remove on the old path plus a Create on the new one.
func (fw *fileWatcher) wantsEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 {
		return false
	}
	return fw.extensions[filepath.Ext(event.Name)]
}

// watchRecursively adds dir and every non-ignored subdirectory to the
// watch set.
func (fw *fileWatcher) watchRecursively(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			log.Printf("Warning: error accessing %s: %v", path, err)
			return nil
		}
		if !info.IsDir() {
			return nil
		}

		if rel := fw.relPath(path); rel != "." && fw.ignored(rel) {
			return filepath.SkipDir
		}

		if err := fw.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to watch directory %s: %v", path, err)
		}
		return nil
	})
}

func (fw *fileWatcher) ignored(relPath string) bool {
	return fw.ignoreDir != nil && fw.ignoreDir(relPath)
}

// relPath converts an event path to a slash-separated path relative to the
// watch root, for ignore matching.
func (fw *fileWatcher) relPath(path string) string {
	rel, err := filepath.Rel(fw.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

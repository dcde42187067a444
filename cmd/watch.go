package cmd

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Editors often emit several events for a single save; changes are
// collected for this long before recompiling.
const watchDebounce = 250 * time.Millisecond

// Watch a set of scene files for changes and invoke onChange for each
// modified file. The parent folder of each scene file is watched so that
// files replaced via rename are also detected. Blocks until done is closed.
func watchScenes(sceneFiles []string, done <-chan struct{}, onChange func(sceneFile string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Map cleaned paths to the paths supplied by the user
	targets := make(map[string]string)
	dirs := make(map[string]struct{})
	for _, sceneFile := range sceneFiles {
		targets[filepath.Clean(sceneFile)] = sceneFile

		dir := filepath.Dir(sceneFile)
		if _, exists := dirs[dir]; exists {
			continue
		}
		if err = watcher.Add(dir); err != nil {
			return err
		}
		dirs[dir] = struct{}{}
	}

	logger.Noticef("watching %d scene file(s) for changes; press ctrl+c to exit", len(targets))

	pending := make(map[string]struct{})
	var debounce <-chan time.Time
	for {
		select {
		case e, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			sceneFile, watched := targets[filepath.Clean(e.Name)]
			if !watched || e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			logger.Debugf("detected change in %s (%s)", sceneFile, e.Op)
			pending[sceneFile] = struct{}{}
			debounce = time.After(watchDebounce)
		case <-debounce:
			for sceneFile := range pending {
				onChange(sceneFile)
			}
			pending = make(map[string]struct{})
			debounce = nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warningf("watcher error: %s", err.Error())
		case <-done:
			return nil
		}
	}
}

// Get a channel that is closed when the process receives SIGINT or SIGTERM.
func interruptChan() <-chan struct{} {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		<-sigChan
		signal.Stop(sigChan)
		close(done)
	}()
	return done
}

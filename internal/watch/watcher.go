package watch

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"pulse_analytics/config"
	"pulse_analytics/queue"
)

// Watcher monitors DATA_DIR for changed CSV files and enqueues reload tasks.
type Watcher struct {
	cfg    config.Config
	tasks  *queue.Queue
	reload func(context.Context) error
}

func New(cfg config.Config, tasks *queue.Queue, reload func(context.Context) error) *Watcher {
	return &Watcher{cfg: cfg, tasks: tasks, reload: reload}
}

func (w *Watcher) Start(ctx context.Context) error {
	if !w.cfg.EnableWatcher {
		log.Println("watcher disabled")
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-watcher.Events:
				if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 && isCSV(evt.Name) {
					w.enqueueReload(ctx, filepath.Base(evt.Name))
				}
			case err := <-watcher.Errors:
				log.Printf("watcher error: %v", err)
			}
		}
	}()
	return watcher.Add(w.cfg.DataDir)
}

func (w *Watcher) enqueueReload(ctx context.Context, file string) {
	task := queue.Task{
		ID:     "reload:" + file,
		Source: "watcher",
		Work:   w.reload,
	}
	enqueued, dropped := w.tasks.EnqueueWithRetry(ctx, task, 2*time.Second, 250*time.Millisecond)
	if !enqueued && dropped {
		log.Printf("reload for %s dropped, queue full", file)
	}
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}

// watch.go keeps a long-lived sweep running over the senses directory.

package sense

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultSweepInterval is the fallback sweep cadence when filesystem
// notifications go quiet.
const DefaultSweepInterval = 15 * time.Minute

// Watch ingests deposits as they land, with a periodic sweep backstop
// for anything fsnotify misses. Returns nil when ctx is canceled.
func (in *Ingestor) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if err := os.MkdirAll(in.root.SensesDir(), 0755); err != nil {
		return fmt.Errorf("creating senses directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating sense watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(in.root.SensesDir()); err != nil {
		return fmt.Errorf("watching senses directory: %w", err)
	}

	// Anything already waiting gets picked up before the first event.
	in.sweep(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	in.logger.Info("sense watcher started",
		zap.String("dir", in.root.SensesDir()),
		zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			in.logger.Info("sense watcher stopping")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, fileSuffix) {
				continue
			}
			if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Rename) {
				in.sweep(ctx)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			in.logger.Warn("sense watcher error", zap.Error(err))
		case <-ticker.C:
			in.sweep(ctx)
		}
	}
}

func (in *Ingestor) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	res, err := in.Ingest(ctx)
	if err != nil {
		in.logger.Warn("sense sweep failed", zap.Error(err))
		return
	}
	if res.Ingested > 0 || res.Rejected > 0 {
		in.logger.Info("sense sweep",
			zap.Int("ingested", res.Ingested),
			zap.Int("rejected", res.Rejected))
	}
}

// ingest.go sweeps the senses directory into the stream.

package sense

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/steveyegge/samara/internal/config"
	"github.com/steveyegge/samara/internal/mind"
	"github.com/steveyegge/samara/internal/stream"
)

// Ingestor converts sense deposits into stream events.
type Ingestor struct {
	root     mind.Root
	store    *stream.Store
	logger   *zap.Logger
	validate *validator.Validate
}

// NewIngestor returns an ingestor rooted at root. A nil logger disables
// logging.
func NewIngestor(root mind.Root, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		root:     root,
		store:    stream.New(root, logger),
		logger:   logger,
		validate: newValidator(),
	}
}

// Result reports one sweep.
type Result struct {
	Ingested int
	Rejected int
}

// Ingest sweeps senses/*.event.json in name order. Valid files become
// stream events and are removed; invalid ones move to rejected/. IO
// failures abort the sweep so unprocessed files survive for the next
// one.
func (in *Ingestor) Ingest(ctx context.Context) (Result, error) {
	paths, err := filepath.Glob(filepath.Join(in.root.SensesDir(), "*"+fileSuffix))
	if err != nil {
		return Result{}, fmt.Errorf("scanning senses: %w", err)
	}
	sort.Strings(paths)

	manifest, err := config.LoadManifest(in.root)
	if err != nil {
		in.logger.Warn("loading satellite manifest", zap.Error(err))
	}

	var res Result
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				// A concurrent sweep got it first.
				continue
			}
			return res, fmt.Errorf("reading sense file: %w", err)
		}

		ev, convErr := in.convert(raw, manifest)
		if convErr != nil {
			if err := in.reject(path, convErr); err != nil {
				return res, err
			}
			res.Rejected++
			continue
		}

		if err := in.store.Append(ctx, ev); err != nil {
			return res, fmt.Errorf("appending sense event: %w", err)
		}
		if err := os.Remove(path); err != nil {
			return res, fmt.Errorf("removing ingested sense file: %w", err)
		}
		res.Ingested++
		in.logger.Info("ingested sense",
			zap.String("file", filepath.Base(path)),
			zap.String("surface", ev.Surface))
	}
	return res, nil
}

func (in *Ingestor) convert(raw []byte, manifest *config.Manifest) (stream.Event, error) {
	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return stream.Event{}, fmt.Errorf("parsing sense file: %w", err)
	}
	if err := in.validate.Struct(f); err != nil {
		return stream.Event{}, fmt.Errorf("invalid sense file: %w", err)
	}
	return f.Event(manifest), nil
}

// reject moves a bad deposit aside with a companion error note.
func (in *Ingestor) reject(path string, cause error) error {
	if err := os.MkdirAll(in.root.RejectedDir(), 0755); err != nil {
		return fmt.Errorf("creating rejected directory: %w", err)
	}
	name := filepath.Base(path)
	if err := os.Rename(path, filepath.Join(in.root.RejectedDir(), name)); err != nil {
		return fmt.Errorf("moving rejected sense file: %w", err)
	}
	note := filepath.Join(in.root.RejectedDir(), name+".error.txt")
	if err := os.WriteFile(note, []byte(cause.Error()+"\n"), 0644); err != nil {
		return fmt.Errorf("writing rejection note: %w", err)
	}
	in.logger.Warn("rejected sense file",
		zap.String("file", name),
		zap.Error(cause))
	return nil
}

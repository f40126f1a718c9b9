// Package batch walks an input folder and pushes every recognized image
// through convert → segment → clean → write, collecting per-item outcomes
// into a report. One bad file never aborts the batch.
package batch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	gopath "path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"go-rembg-clean/internal/cleaner"
	apperrors "go-rembg-clean/internal/errors"
	"go-rembg-clean/internal/gimp"
	"go-rembg-clean/internal/imaging"
	"go-rembg-clean/internal/logger"
	"go-rembg-clean/internal/segment"
	"go-rembg-clean/internal/storage"
)

var rasterExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

const projectExtension = ".xcf"

// Params configures one batch run. Immutable for its duration.
type Params struct {
	InputDir     string
	Model        string
	SkipExisting bool
	// MaxSize bounds the longest image edge before segmentation; 0 disables.
	MaxSize int
	// Workers bounds concurrent items; 0 or 1 means sequential.
	Workers int
	Clean   cleaner.Options
}

// Runner orchestrates a batch over independent items
type Runner struct {
	params    Params
	segmenter segment.Segmenter
	converter *gimp.Converter // nil when no GIMP executable resolved
	store     storage.Store

	// The rembg server is reentrant but its thread-safety is not documented,
	// so calls to it are serialized even when items run concurrently.
	segMu sync.Mutex
}

// NewRunner wires a runner from its collaborators. converter may be nil, in
// which case project files are skipped.
func NewRunner(params Params, segmenter segment.Segmenter, converter *gimp.Converter, store storage.Store) *Runner {
	return &Runner{
		params:    params,
		segmenter: segmenter,
		converter: converter,
		store:     store,
	}
}

// Run processes the input folder and returns the aggregated report. The only
// error it returns is a configuration-level one (unusable input folder);
// per-item failures are recorded in the report instead.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	info, err := os.Stat(r.params.InputDir)
	if err != nil || !info.IsDir() {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("invalid input folder: %s", r.params.InputDir), err)
	}

	items, err := r.scan()
	if err != nil {
		return nil, apperrors.NewValidationError("failed to scan input folder", err)
	}

	logger.WithFields(logrus.Fields{
		"folder": r.params.InputDir,
		"files":  len(items),
	}).Info("Starting batch")

	report := &Report{Items: items}
	if len(items) == 0 {
		return report, nil
	}

	tmpDir, err := os.MkdirTemp("", "rembg-clean-*")
	if err != nil {
		return nil, apperrors.NewValidationError("failed to create temp directory", err)
	}
	defer os.RemoveAll(tmpDir)

	pool := newWorkerPool(r.params.Workers)
	pool.Start()
	defer pool.Close()

	for i, item := range items {
		i, item := i, item // per-iteration copies: module builds with a pre-1.22 language version
		pool.Submit(func() {
			r.process(ctx, i, item, tmpDir)
		})
	}
	pool.Wait()

	logger.WithFields(logrus.Fields{
		"written": report.Count(StatusWritten),
		"skipped": report.Count(StatusSkipped),
		"failed":  report.Count(StatusFailed),
	}).Info("Batch finished")

	return report, nil
}

// scan enumerates recognized files recursively. Unrecognized extensions are
// ignored, not errors.
func (r *Runner) scan() ([]*Item, error) {
	var items []*Item
	err := filepath.WalkDir(r.params.InputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !rasterExtensions[ext] && ext != projectExtension {
			return nil
		}
		items = append(items, &Item{
			InputPath: path,
			OutputKey: r.outputKey(path),
			Status:    StatusPending,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// outputKey mirrors the input's relative location and appends the _clean
// suffix: nested/photo.jpg -> nested/photo_clean.png
func (r *Runner) outputKey(inputPath string) string {
	rel, err := filepath.Rel(r.params.InputDir, inputPath)
	if err != nil {
		rel = filepath.Base(inputPath)
	}
	rel = filepath.ToSlash(rel)
	stem := strings.TrimSuffix(gopath.Base(rel), gopath.Ext(rel))
	return gopath.Join(gopath.Dir(rel), stem+"_clean.png")
}

func (r *Runner) process(ctx context.Context, idx int, item *Item, tmpDir string) {
	log := logger.WithFields(logrus.Fields{
		"file":   filepath.Base(item.InputPath),
		"output": item.OutputKey,
	})
	log.Info("Start file")

	if r.params.SkipExisting {
		exists, err := r.store.Exists(ctx, item.OutputKey)
		if err != nil {
			item.fail(apperrors.NewWriteError("failed to check existing output", err))
			log.WithError(item.Err).Error("Item failed")
			return
		}
		if exists {
			item.skip("output already exists")
			log.Info("Skipped: output already exists")
			return
		}
	}

	input := item.InputPath
	if strings.ToLower(filepath.Ext(input)) == projectExtension {
		if r.converter == nil {
			item.skip(".xcf not supported in this configuration")
			log.Info("Skipped: no headless GIMP available")
			return
		}
		stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		exported := filepath.Join(tmpDir, fmt.Sprintf("%d_%s__xcf.png", idx, stem))
		exportDone := logger.Stage(log, "export")
		if err := r.converter.ConvertToPNG(ctx, input, exported); err != nil {
			item.fail(err)
			log.WithError(err).Error("XCF export failed")
			return
		}
		exportDone()
		input = exported
		item.Status = StatusConverted
	}

	data, err := os.ReadFile(input)
	if err != nil {
		item.fail(apperrors.NewInvalidImageError(fmt.Sprintf("failed to read %s", input), err))
		log.WithError(item.Err).Error("Item failed")
		return
	}

	if r.params.MaxSize > 0 {
		data, err = r.downscale(data)
		if err != nil {
			item.fail(err)
			log.WithError(err).Error("Downscale failed")
			return
		}
	}

	segDone := logger.Stage(log, "segment")
	r.segMu.Lock()
	img, err := r.segmenter.Segment(ctx, data, r.params.Model)
	r.segMu.Unlock()
	if err != nil {
		item.fail(err)
		log.WithError(err).Error("Segmentation failed")
		return
	}
	segDone()
	item.Status = StatusSegmented

	cleaned, err := cleaner.CleanWithOptions(img, r.params.Clean)
	if err != nil {
		item.fail(err)
		log.WithError(err).Error("Edge cleanup failed")
		return
	}
	item.Status = StatusCleaned

	encoded, err := imaging.EncodePNG(cleaned)
	if err != nil {
		item.fail(apperrors.NewWriteError("failed to encode output", err))
		log.WithError(item.Err).Error("Item failed")
		return
	}
	if err := r.store.Put(ctx, item.OutputKey, encoded); err != nil {
		item.fail(err)
		log.WithError(err).Error("Write failed")
		return
	}
	item.Status = StatusWritten
	log.Info("Done")
}

// downscale re-encodes the input no larger than MaxSize on its longest edge
func (r *Runner) downscale(data []byte) ([]byte, error) {
	img, err := imaging.Decode(data)
	if err != nil {
		return nil, err
	}
	fitted := imaging.FitWithin(img, r.params.MaxSize)
	if fitted == img {
		return data, nil
	}
	return imaging.EncodePNG(fitted)
}

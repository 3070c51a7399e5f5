// Package bundle persists a merged dataset as a zstd-compressed
// MessagePack snapshot. Repeat runs against the same extract can load
// the snapshot instead of decoding and merging NetCDF input again.
package bundle

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/tailvane/windresource/internal/domain"
)

// formatVersion guards against loading bundles written by an
// incompatible build.
const formatVersion = 1

type envelope struct {
	Version int             `msgpack:"version"`
	Dataset *domain.Dataset `msgpack:"dataset"`
}

// Save writes ds to path. The dataset is validated first; a bundle
// never holds a dataset that ReadDataset would have rejected.
func Save(path string, ds *domain.Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create bundle: %w", err)
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		f.Close()
		return err
	}
	if err := msgpack.NewEncoder(zw).Encode(envelope{Version: formatVersion, Dataset: ds}); err != nil {
		zw.Close()
		f.Close()
		return fmt.Errorf("encode bundle: %w", err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("flush bundle: %w", err)
	}
	return f.Close()
}

// Load reads a bundle written by Save and validates the dataset.
func Load(path string) (*domain.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	defer f.Close()
	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	defer zr.Close()

	var env envelope
	if err := msgpack.NewDecoder(zr).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: decode bundle %s: %v", domain.ErrConfiguration, path, err)
	}
	if env.Version != formatVersion {
		return nil, fmt.Errorf("%w: bundle format version %d, want %d", domain.ErrConfiguration, env.Version, formatVersion)
	}
	if env.Dataset == nil {
		return nil, fmt.Errorf("%w: bundle holds no dataset", domain.ErrConfiguration)
	}
	if err := env.Dataset.Validate(); err != nil {
		return nil, err
	}
	return env.Dataset, nil
}

// Reader adapts a bundle file to the pipeline's dataset source.
type Reader struct {
	logger *slog.Logger
}

func NewReader(logger *slog.Logger) *Reader {
	return &Reader{logger: logger}
}

// ReadDataset loads a single bundle file. Merging happens when the
// bundle is written, so exactly one path is accepted.
func (r *Reader) ReadDataset(ctx context.Context, paths []string) (*domain.Dataset, error) {
	if len(paths) != 1 {
		return nil, fmt.Errorf("%w: a bundle load takes exactly one file, got %d", domain.ErrConfiguration, len(paths))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ds, err := Load(paths[0])
	if err != nil {
		return nil, err
	}
	first, last, _ := ds.TimeSpan()
	r.logger.Info("dataset bundle loaded",
		"file", paths[0],
		"variables", ds.VariableNames(),
		"steps", ds.Steps(),
		"from", first,
		"to", last,
	)
	return ds, nil
}

// Package publish copies emitted bundle artifacts into a secondary static
// assets directory once the bundler has finished a build.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/minio/crc64nvme"
	"github.com/rs/zerolog/log"
)

// DefaultDir is the static directory, relative to the project root, the bundle is copied into
const DefaultDir = "hiplot/static/built"

type Options struct {
	// Project root, destination directories are resolved against it
	Root string
	// Destination directory relative to Root
	Dir string
	// Write a gzip compressed sibling next to the published copy
	Precompress bool
	// Skip publishing when the build reported errors
	OnlyOnSuccess bool
}

// DefaultOptions returns options publishing into DefaultDir under the working directory
func DefaultOptions() Options {
	return Options{
		Root: ".",
		Dir:  DefaultDir,
	}
}

// Artifact identifies one emitted file and where its copy goes.
// It is built fresh for each build completion and never mutated.
type Artifact struct {
	Source      string
	Destination string
}

// Result describes a completed publish
type Result struct {
	Artifact   Artifact
	Bytes      int64
	Checksum   uint64
	Compressed string
}

// Publisher places build artifacts into the destination directory
type Publisher struct {
	opts Options
}

// New creates a publisher with the given options
func New(opts Options) *Publisher {
	if opts.Root == "" {
		opts.Root = "."
	}
	if opts.Dir == "" {
		opts.Dir = DefaultDir
	}
	return &Publisher{opts: opts}
}

// Options returns the options the publisher was created with
func (p *Publisher) Options() Options {
	return p.opts
}

// DestinationDir returns the absolute destination directory
func (p *Publisher) DestinationDir() (string, error) {
	dir := p.opts.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(p.opts.Root, dir)
	}
	return filepath.Abs(dir)
}

// Artifact builds the reference for the file name inside outdir, keeping the name at the destination
func (p *Publisher) Artifact(outdir, name string) (Artifact, error) {
	if outdir == "" || name == "" {
		return Artifact{}, fmt.Errorf("%w: outdir=%q name=%q", ErrInvalidArtifact, outdir, name)
	}

	dir, err := p.DestinationDir()
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to resolve destination directory: %w", err)
	}

	src, err := filepath.Abs(filepath.Join(outdir, name))
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to resolve source path: %w", err)
	}

	return Artifact{
		Source:      src,
		Destination: filepath.Join(dir, filepath.Base(name)),
	}, nil
}

// Publish creates the destination directory if needed and copies the artifact over any previous copy
func (p *Publisher) Publish(ctx context.Context, a Artifact) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if a.Source == "" || a.Destination == "" {
		return nil, fmt.Errorf("%w: source=%q destination=%q", ErrInvalidArtifact, a.Source, a.Destination)
	}

	dir := filepath.Dir(a.Destination)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &DirError{Dir: dir, Err: err}
	}

	written, checksum, err := copyFile(a.Source, a.Destination)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Artifact: a,
		Bytes:    written,
		Checksum: checksum,
	}

	if p.opts.Precompress {
		res.Compressed, err = compressFile(a.Destination)
		if err != nil {
			return nil, err
		}
	}

	log.Info().
		Str("source", a.Source).
		Str("destination", a.Destination).
		Int64("bytes", written).
		Str("crc64", fmt.Sprintf("%016x", checksum)).
		Msg("Published artifact")

	return res, nil
}

// copyFile writes src to a temporary file beside dst and renames it into place
func copyFile(src, dst string) (int64, uint64, error) {
	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, 0, fmt.Errorf("%w: %s", ErrSourceMissing, src)
		}
		return 0, 0, fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to stat source: %w", err)
	}
	if info.IsDir() {
		return 0, 0, fmt.Errorf("%w: %s is a directory", ErrSourceMissing, src)
	}

	h := crc64nvme.New()
	written, err := writeAtomic(dst, info.Mode().Perm(), func(w io.Writer) (int64, error) {
		return io.Copy(io.MultiWriter(w, h), in)
	})
	if err != nil {
		return 0, 0, err
	}

	return written, h.Sum64(), nil
}

// compressFile writes a gzip copy of path to path.gz
func compressFile(path string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open published file: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat published file: %w", err)
	}

	gzPath := path + ".gz"
	_, err = writeAtomic(gzPath, info.Mode().Perm(), func(w io.Writer) (int64, error) {
		enc, err := gzip.NewWriterLevel(w, gzip.BestCompression)
		if err != nil {
			return 0, fmt.Errorf("failed to create encoder: %w", err)
		}
		enc.Name = filepath.Base(path)
		enc.ModTime = info.ModTime()

		n, err := io.Copy(enc, in)
		if err != nil {
			_ = enc.Close()
			return n, err
		}
		return n, enc.Close()
	})
	if err != nil {
		return "", err
	}

	return gzPath, nil
}

func writeAtomic(dst string, perm fs.FileMode, fill func(w io.Writer) (int64, error)) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	written, err := fill(tmp)
	if err != nil {
		if closeErr := tmp.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close temp file during error cleanup")
		}
		os.Remove(tmpPath) // Clean up partial file
		return 0, fmt.Errorf("failed to write %s: %w", dst, err)
	}

	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to set mode on %s: %w", dst, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to close %s: %w", dst, err)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to move %s into place: %w", dst, err)
	}

	return written, nil
}

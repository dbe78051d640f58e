package publish

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/minio/crc64nvme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBundle(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
}

func TestPublish_CreatesNestedDestination(t *testing.T) {
	root := t.TempDir()
	outdir := filepath.Join(root, "dist")
	writeBundle(t, outdir, "hiplot.bundle.js", []byte("console.log('hiplot');"))

	p := New(Options{Root: root, Dir: "a/b/c/built"})
	artifact, err := p.Artifact(outdir, "hiplot.bundle.js")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "a/b/c/built/hiplot.bundle.js"), artifact.Destination)

	res, err := p.Publish(context.Background(), artifact)
	require.NoError(t, err)
	require.Equal(t, int64(len("console.log('hiplot');")), res.Bytes)

	data, err := os.ReadFile(artifact.Destination)
	require.NoError(t, err)
	require.Equal(t, "console.log('hiplot');", string(data))
}

func TestPublish_ExistingDestinationKeepsUnrelatedFiles(t *testing.T) {
	tests := []struct {
		name     string
		existing map[string]string
	}{
		{
			name:     "empty directory",
			existing: map[string]string{},
		},
		{
			name: "unrelated files",
			existing: map[string]string{
				"index.html": "<html></html>",
				"other.js":   "var other;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			outdir := filepath.Join(root, "dist")
			writeBundle(t, outdir, "hiplot.bundle.js", []byte("bundle"))

			dest := filepath.Join(root, DefaultDir)
			require.NoError(t, os.MkdirAll(dest, 0755))
			for name, content := range tt.existing {
				require.NoError(t, os.WriteFile(filepath.Join(dest, name), []byte(content), 0644))
			}

			p := New(Options{Root: root})
			artifact, err := p.Artifact(outdir, "hiplot.bundle.js")
			require.NoError(t, err)

			_, err = p.Publish(context.Background(), artifact)
			require.NoError(t, err)

			for name, content := range tt.existing {
				data, err := os.ReadFile(filepath.Join(dest, name))
				require.NoError(t, err)
				assert.Equal(t, content, string(data))
			}

			entries, err := os.ReadDir(dest)
			require.NoError(t, err)
			assert.Len(t, entries, len(tt.existing)+1)
		})
	}
}

func TestPublish_OverwritesPreviousArtifact(t *testing.T) {
	root := t.TempDir()
	outdir := filepath.Join(root, "dist")
	fresh := []byte("new bundle contents\x00\x01\x02")
	writeBundle(t, outdir, "hiplot.bundle.js", fresh)

	p := New(Options{Root: root})
	artifact, err := p.Artifact(outdir, "hiplot.bundle.js")
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Dir(artifact.Destination), 0755))
	require.NoError(t, os.WriteFile(artifact.Destination, []byte("a much longer stale bundle that must be fully replaced"), 0644))

	res, err := p.Publish(context.Background(), artifact)
	require.NoError(t, err)

	data, err := os.ReadFile(artifact.Destination)
	require.NoError(t, err)
	require.Equal(t, fresh, data)

	h := crc64nvme.New()
	h.Write(fresh)
	require.Equal(t, h.Sum64(), res.Checksum)
}

func TestPublish_MissingSource(t *testing.T) {
	root := t.TempDir()
	outdir := filepath.Join(root, "dist")

	p := New(Options{Root: root})
	artifact, err := p.Artifact(outdir, "hiplot.bundle.js")
	require.NoError(t, err)

	_, err = p.Publish(context.Background(), artifact)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrSourceMissing)

	_, err = os.Stat(artifact.Destination)
	require.True(t, errors.Is(err, os.ErrNotExist))

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Dir(artifact.Destination))
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestPublish_Idempotent(t *testing.T) {
	root := t.TempDir()
	outdir := filepath.Join(root, "dist")
	writeBundle(t, outdir, "hiplot.bundle.js", []byte("stable"))

	p := New(Options{Root: root})
	artifact, err := p.Artifact(outdir, "hiplot.bundle.js")
	require.NoError(t, err)

	first, err := p.Publish(context.Background(), artifact)
	require.NoError(t, err)
	afterFirst, err := os.ReadFile(artifact.Destination)
	require.NoError(t, err)

	second, err := p.Publish(context.Background(), artifact)
	require.NoError(t, err)
	afterSecond, err := os.ReadFile(artifact.Destination)
	require.NoError(t, err)

	require.Equal(t, afterFirst, afterSecond)
	require.Equal(t, first.Checksum, second.Checksum)
}

func TestPublish_DirectoryCreationFailure(t *testing.T) {
	root := t.TempDir()
	outdir := filepath.Join(root, "dist")
	writeBundle(t, outdir, "hiplot.bundle.js", []byte("bundle"))

	// A regular file where a parent directory is expected
	require.NoError(t, os.WriteFile(filepath.Join(root, "hiplot"), []byte("not a dir"), 0644))

	p := New(Options{Root: root})
	artifact, err := p.Artifact(outdir, "hiplot.bundle.js")
	require.NoError(t, err)

	_, err = p.Publish(context.Background(), artifact)
	require.Error(t, err)

	var dirErr *DirError
	require.ErrorAs(t, err, &dirErr)
	require.Equal(t, filepath.Dir(artifact.Destination), dirErr.Dir)
}

func TestPublish_Precompress(t *testing.T) {
	root := t.TempDir()
	outdir := filepath.Join(root, "dist")
	content := []byte("function hiplot() { return 42; }\n")
	writeBundle(t, outdir, "hiplot.bundle.js", content)

	p := New(Options{Root: root, Precompress: true})
	artifact, err := p.Artifact(outdir, "hiplot.bundle.js")
	require.NoError(t, err)

	res, err := p.Publish(context.Background(), artifact)
	require.NoError(t, err)
	require.Equal(t, artifact.Destination+".gz", res.Compressed)

	f, err := os.Open(res.Compressed)
	require.NoError(t, err)
	defer f.Close()

	dec, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer dec.Close()

	data, err := io.ReadAll(dec)
	require.NoError(t, err)
	require.Equal(t, content, data)
	require.Equal(t, "hiplot.bundle.js", dec.Name)
}

func TestPublish_InvalidArtifact(t *testing.T) {
	p := New(DefaultOptions())

	_, err := p.Artifact("", "hiplot.bundle.js")
	require.ErrorIs(t, err, ErrInvalidArtifact)

	_, err = p.Publish(context.Background(), Artifact{})
	require.ErrorIs(t, err, ErrInvalidArtifact)
}

func TestPublish_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(DefaultOptions())
	_, err := p.Publish(ctx, Artifact{Source: "a", Destination: "b"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNew_Defaults(t *testing.T) {
	p := New(Options{})
	require.Equal(t, ".", p.Options().Root)
	require.Equal(t, DefaultDir, p.Options().Dir)

	dir, err := p.DestinationDir()
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(dir))
}

package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/hiplotbuild/internal/publish"
)

// ErrBuildFailed is returned when esbuild, or one of the build hooks, reported errors
var ErrBuildFailed = errors.New("esbuild failed with errors")

// New creates a new asset pipeline with the given configuration
func New(config Config) (*Pipeline, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid asset config: %w", err)
	}

	root, err := filepath.Abs(config.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	return &Pipeline{
		config: config,
		root:   root,
		publisher: publish.New(publish.Options{
			Root:          root,
			Dir:           config.Publish.Dir,
			Precompress:   config.Publish.Precompress,
			OnlyOnSuccess: config.Publish.OnlyOnSuccess,
		}),
	}, nil
}

// Config returns the configuration the pipeline was created with
func (p *Pipeline) Config() Config {
	return p.config
}

// Publisher returns the publisher wired into the build
func (p *Pipeline) Publisher() *publish.Publisher {
	return p.publisher
}

// OutputDir returns the absolute build output directory
func (p *Pipeline) OutputDir() string {
	return p.resolve(p.config.OutputDir)
}

// Options returns the esbuild options for the configured build
func (p *Pipeline) Options(ctx context.Context) api.BuildOptions {
	plugins := []api.Plugin{p.reportPlugin()}
	if p.config.Publish.Enabled {
		plugins = append(plugins, publish.Plugin(ctx, p.publisher, p.config.PublishArtifact()))
	}

	return api.BuildOptions{
		EntryPointsAdvanced: p.config.entryPoints(),
		AbsWorkingDir:       p.root,
		Outdir:              p.config.OutputDir,
		Bundle:              true,
		Write:               true,
		Format:              api.FormatIIFE,
		Target:              targets[strings.ToLower(p.config.Target)],
		JSX:                 jsxModes[p.config.JSX],
		ResolveExtensions:   p.config.ResolveExtensions,
		Loader:              p.config.loaderMap(),
		Banner:              p.config.banner(),
		MinifyWhitespace:    p.config.Minify,
		MinifyIdentifiers:   p.config.Minify,
		MinifySyntax:        p.config.Minify,
		TreeShaking:         api.TreeShakingTrue,
		Sourcemap:           cond(p.config.SourceMap, api.SourceMapLinked, api.SourceMapNone),
		Metafile:            true,
		LogLevel:            api.LogLevelSilent,
		Plugins:             plugins,
	}
}

// Build runs esbuild once with the configured settings and loads metadata
func (p *Pipeline) Build(ctx context.Context) error {
	result := api.Build(p.Options(ctx))
	if len(result.Errors) > 0 {
		return fmt.Errorf("%w: %s", ErrBuildFailed, result.Errors[0].Text)
	}
	return nil
}

// Watch builds, then rebuilds on every change until ctx is cancelled
func (p *Pipeline) Watch(ctx context.Context) error {
	buildCtx, ctxErr := api.Context(p.Options(ctx))
	if ctxErr != nil {
		for _, msg := range ctxErr.Errors {
			log.Error().Str("error", msg.Text).Msg("Build context error")
		}
		return errors.New("failed to create esbuild context")
	}
	defer buildCtx.Dispose()

	if err := buildCtx.Watch(api.WatchOptions{}); err != nil {
		return fmt.Errorf("failed to start watch: %w", err)
	}

	log.Info().Str("root", p.root).Msg("Watching for changes")

	<-ctx.Done()

	log.Info().Msg("Stopped watching")
	return nil
}

// Metadata returns the metafile of the last successful build
func (p *Pipeline) Metadata() (*BuildMetadata, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.metadata == nil {
		return nil, errors.New("assets not built yet, call Build() first")
	}
	return p.metadata, nil
}

// reportPlugin logs every build and, on success, writes the metafile and license notice
func (p *Pipeline) reportPlugin() api.Plugin {
	return api.Plugin{
		Name: "report",
		Setup: func(build api.PluginBuild) {
			var started time.Time

			build.OnStart(func() (api.OnStartResult, error) {
				started = time.Now()
				log.Info().Interface("entrypoints", p.config.EntryPoints).Msg("Building assets")
				return api.OnStartResult{}, nil
			})

			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				for _, msg := range result.Warnings {
					log.Warn().Str("warning", msg.Text).Str("location", location(msg)).Msg("Build warning")
				}

				if len(result.Errors) > 0 {
					for _, msg := range result.Errors {
						log.Error().Str("error", msg.Text).Str("location", location(msg)).Msg("Build error")
					}
					return api.OnEndResult{}, nil
				}

				for _, file := range result.OutputFiles {
					log.Info().Str("file", file.Path).Msg("Built file")
				}

				if err := p.afterBuild(result.Metafile); err != nil {
					log.Error().Err(err).Msg("Post build step failed")
					return api.OnEndResult{}, err
				}

				log.Info().Dur("duration", time.Since(started)).Msg("Build finished")
				return api.OnEndResult{}, nil
			})
		},
	}
}

func (p *Pipeline) afterBuild(metafile string) error {
	// Write metafile
	metafilePath := p.resolve(p.config.MetafileLocation())
	if err := os.MkdirAll(filepath.Dir(metafilePath), 0755); err != nil {
		return fmt.Errorf("failed to create metafile directory: %w", err)
	}
	if err := os.WriteFile(metafilePath, []byte(metafile), 0600); err != nil {
		return fmt.Errorf("failed to write metafile: %w", err)
	}

	// Parse and cache metadata
	metadata, err := parseMetadata(metafile)
	if err != nil {
		return fmt.Errorf("failed to parse metafile: %w", err)
	}

	p.mu.Lock()
	p.metadata = metadata
	p.mu.Unlock()

	if !p.config.Licenses {
		return nil
	}

	packages, err := collectLicenses(p.root, metadata)
	if err != nil {
		return fmt.Errorf("failed to collect licenses: %w", err)
	}

	licensePath := filepath.Join(p.OutputDir(), p.config.LicenseFile)
	if err := writeLicenses(licensePath, packages); err != nil {
		return fmt.Errorf("failed to write license notice: %w", err)
	}

	log.Debug().Int("packages", len(packages)).Str("file", licensePath).Msg("Wrote license notice")
	return nil
}

func (p *Pipeline) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.root, path)
}

func location(msg api.Message) string {
	if msg.Location == nil {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", msg.Location.File, msg.Location.Line, msg.Location.Column)
}

func cond[T any](condition bool, trueVal, falseVal T) T {
	if condition {
		return trueVal
	}
	return falseVal
}

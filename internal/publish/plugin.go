package publish

import (
	"context"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
)

// PluginName is reported by esbuild alongside publish errors
const PluginName = "publish-artifact"

// Plugin returns an esbuild plugin that publishes the named output file after every build.
//
// esbuild writes output files before running end callbacks, so the artifact
// is on disk when the callback fires. Any publish error is handed back to
// esbuild and fails the build.
func Plugin(ctx context.Context, p *Publisher, name string) api.Plugin {
	return api.Plugin{
		Name: PluginName,
		Setup: func(build api.PluginBuild) {
			outdir := outputDir(build.InitialOptions)

			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if p.opts.OnlyOnSuccess && len(result.Errors) > 0 {
					log.Warn().
						Int("errors", len(result.Errors)).
						Str("artifact", name).
						Msg("Build failed, skipping publish")
					return api.OnEndResult{}, nil
				}

				artifact, err := p.Artifact(outdir, name)
				if err != nil {
					return api.OnEndResult{}, err
				}

				if _, err := p.Publish(ctx, artifact); err != nil {
					log.Error().Err(err).Str("artifact", name).Msg("Publish failed")
					return api.OnEndResult{}, err
				}

				return api.OnEndResult{}, nil
			})
		},
	}
}

// outputDir resolves the build output directory the way esbuild does, against AbsWorkingDir
func outputDir(opts *api.BuildOptions) string {
	if opts == nil {
		return "."
	}

	outdir := opts.Outdir
	if outdir == "" && opts.Outfile != "" {
		outdir = filepath.Dir(opts.Outfile)
	}
	if outdir == "" {
		outdir = "."
	}

	if !filepath.IsAbs(outdir) && opts.AbsWorkingDir != "" {
		outdir = filepath.Join(opts.AbsWorkingDir, outdir)
	}

	return outdir
}

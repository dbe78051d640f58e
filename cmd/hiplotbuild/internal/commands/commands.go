package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/hiplotbuild/internal/assets"
	"github.com/wolfeidau/hiplotbuild/internal/logger"
)

type Globals struct {
	Debug   bool
	Version string
}

// BuildFlags override values from the config file when set
type BuildFlags struct {
	Config        string `help:"path to bundle config file (YAML)" type:"existingfile" env:"HIPLOTBUILD_CONFIG"`
	Root          string `help:"project root (default: from config, or the working directory)" env:"HIPLOTBUILD_ROOT"`
	Minify        bool   `help:"minify output" default:"false" env:"HIPLOTBUILD_MINIFY"`
	NoSourceMap   bool   `help:"disable source maps" default:"false"`
	NoLicenses    bool   `help:"skip writing the third party license notice" default:"false"`
	NoPublish     bool   `help:"do not copy the bundle into the static directory" default:"false"`
	PublishDir    string `help:"static directory the bundle is copied into, relative to the root" env:"HIPLOTBUILD_PUBLISH_DIR"`
	Precompress   bool   `help:"also write a gzip copy of the published bundle" default:"false" env:"HIPLOTBUILD_PRECOMPRESS"`
	OnlyOnSuccess bool   `help:"skip publishing when the build reports errors" default:"false" env:"HIPLOTBUILD_ONLY_ON_SUCCESS"`
}

func (f BuildFlags) load() (assets.Config, error) {
	cfg, err := assets.LoadConfig(f.Config)
	if err != nil {
		return assets.Config{}, err
	}

	if f.Root != "" {
		cfg.Root = f.Root
	}
	if f.Minify {
		cfg.Minify = true
	}
	if f.NoSourceMap {
		cfg.SourceMap = false
	}
	if f.NoLicenses {
		cfg.Licenses = false
	}
	if f.NoPublish {
		cfg.Publish.Enabled = false
	}
	if f.PublishDir != "" {
		cfg.Publish.Dir = f.PublishDir
	}
	if f.Precompress {
		cfg.Publish.Precompress = true
	}
	if f.OnlyOnSuccess {
		cfg.Publish.OnlyOnSuccess = true
	}

	return cfg, nil
}

func (f BuildFlags) pipeline(globals *Globals) (*assets.Pipeline, error) {
	log.Logger = logger.Setup(globals.Debug)

	cfg, err := f.load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log.Debug().Str("version", globals.Version).Str("root", cfg.Root).Msg("Loaded config")

	pipeline, err := assets.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load assets pipeline: %w", err)
	}
	return pipeline, nil
}

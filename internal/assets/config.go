package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/wolfeidau/hiplotbuild/internal/publish"
	"gopkg.in/yaml.v3"
)

const defaultBanner = ` Copyright (c) Facebook, Inc. and its affiliates.

 This source code is licensed under the MIT license found in the
 LICENSE file in the root directory of this source tree.`

type Config struct {
	// Project root, all relative paths are resolved against it
	Root string `yaml:"root"`
	// Entry points keyed by bundle name (e.g., "hiplot": "./src/hiplot.tsx")
	EntryPoints map[string]string `yaml:"entryPoints"`
	// Output directory for built files
	OutputDir string `yaml:"outputDir"`
	// Output name template, [name] is replaced with the entry point name
	EntryNames string `yaml:"entryNames"`
	// Path to metafile (relative to Root), empty means meta.json inside OutputDir
	MetafilePath string `yaml:"metafile"`
	// Extensions tried, in order, when resolving imports without one
	ResolveExtensions []string `yaml:"resolveExtensions"`
	// Loader name per file extension (e.g., ".svg": "dataurl")
	Loaders map[string]string `yaml:"loaders"`
	// Language target (e.g., "es2018")
	Target string `yaml:"target"`
	// JSX mode: transform, automatic or preserve
	JSX string `yaml:"jsx"`
	// Comment placed at the top of every js and css output
	Banner string `yaml:"banner"`
	// Whether to minify output
	Minify bool `yaml:"minify"`
	// Whether to enable source maps
	SourceMap bool `yaml:"sourceMap"`
	// Write a third party license notice next to the bundle
	Licenses bool `yaml:"licenses"`
	// License notice file name, inside OutputDir
	LicenseFile string `yaml:"licenseFile"`

	Publish PublishConfig `yaml:"publish"`
}

type PublishConfig struct {
	Enabled bool `yaml:"enabled"`
	// Output file copied after each build, inside OutputDir.
	// Empty means the js output of the first entry point by name.
	Artifact string `yaml:"artifact"`
	// Destination directory relative to Root
	Dir           string `yaml:"dir"`
	Precompress   bool   `yaml:"precompress"`
	OnlyOnSuccess bool   `yaml:"onlyOnSuccess"`
}

// DefaultConfig returns the configuration used to build the hiplot bundle
func DefaultConfig() Config {
	return Config{
		Root: ".",
		EntryPoints: map[string]string{
			"hiplot": "./src/hiplot.tsx",
		},
		OutputDir:         "dist",
		EntryNames:        "[name].bundle",
		ResolveExtensions: []string{".ts", ".tsx", ".js", ".json", ".css", ".svg", ".scss"},
		Loaders: map[string]string{
			".png":  "dataurl",
			".jpg":  "dataurl",
			".jpeg": "dataurl",
			".svg":  "dataurl",
			".css":  "local-css",
			".ts":   "ts",
			".tsx":  "tsx",
			".json": "json",
		},
		Target:      "es2018",
		JSX:         "transform",
		Banner:      defaultBanner,
		Minify:      false,
		SourceMap:   true,
		Licenses:    true,
		LicenseFile: "hiplot.licenses.txt",
		Publish: PublishConfig{
			Enabled: true,
			Dir:     publish.DefaultDir,
		},
	}
}

// LoadConfig reads a YAML config file over the defaults, an empty path returns the defaults
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	// Maps in the file replace the defaults instead of merging into them
	var maps struct {
		EntryPoints map[string]string `yaml:"entryPoints"`
		Loaders     map[string]string `yaml:"loaders"`
	}
	if err := yaml.Unmarshal(data, &maps); err != nil {
		return Config{}, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if maps.EntryPoints != nil {
		cfg.EntryPoints = nil
	}
	if maps.Loaders != nil {
		cfg.Loaders = nil
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return cfg, nil
}

var loaders = map[string]api.Loader{
	"default":    api.LoaderDefault,
	"js":         api.LoaderJS,
	"jsx":        api.LoaderJSX,
	"ts":         api.LoaderTS,
	"tsx":        api.LoaderTSX,
	"json":       api.LoaderJSON,
	"css":        api.LoaderCSS,
	"local-css":  api.LoaderLocalCSS,
	"global-css": api.LoaderGlobalCSS,
	"text":       api.LoaderText,
	"base64":     api.LoaderBase64,
	"dataurl":    api.LoaderDataURL,
	"file":       api.LoaderFile,
	"binary":     api.LoaderBinary,
	"copy":       api.LoaderCopy,
	"empty":      api.LoaderEmpty,
}

var targets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

var jsxModes = map[string]api.JSX{
	"transform": api.JSXTransform,
	"automatic": api.JSXAutomatic,
	"preserve":  api.JSXPreserve,
}

// Validate checks the config can be turned into build options
func (c Config) Validate() error {
	var errs []error

	if len(c.EntryPoints) == 0 {
		errs = append(errs, errors.New("at least one entry point is required"))
	}
	for name, path := range c.EntryPoints {
		if name == "" || path == "" {
			errs = append(errs, fmt.Errorf("entry point %q has an empty name or path", name))
		}
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if !strings.Contains(c.EntryNames, "[name]") {
		errs = append(errs, fmt.Errorf("entry names %q must contain [name]", c.EntryNames))
	}
	for ext, name := range c.Loaders {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Errorf("loader extension %q must start with a dot", ext))
		}
		if _, ok := loaders[name]; !ok {
			errs = append(errs, fmt.Errorf("unknown loader %q for %s", name, ext))
		}
	}
	if _, ok := targets[strings.ToLower(c.Target)]; !ok {
		errs = append(errs, fmt.Errorf("unknown target %q", c.Target))
	}
	if _, ok := jsxModes[c.JSX]; !ok {
		errs = append(errs, fmt.Errorf("unknown jsx mode %q", c.JSX))
	}
	if c.Licenses && c.LicenseFile == "" {
		errs = append(errs, errors.New("license file name is required when licenses are enabled"))
	}
	if c.Publish.Enabled && c.Publish.Artifact != "" && len(c.EntryPoints) > 0 && !c.producesOutput(c.Publish.Artifact) {
		errs = append(errs, fmt.Errorf("publish artifact %q is not an output of any entry point with entry names %q", c.Publish.Artifact, c.EntryNames))
	}

	return errors.Join(errs...)
}

// entryPoints returns the entry points in name order with their output paths
func (c Config) entryPoints() []api.EntryPoint {
	names := make([]string, 0, len(c.EntryPoints))
	for name := range c.EntryPoints {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]api.EntryPoint, 0, len(names))
	for _, name := range names {
		entries = append(entries, api.EntryPoint{
			InputPath:  c.EntryPoints[name],
			OutputPath: strings.ReplaceAll(c.EntryNames, "[name]", name),
		})
	}
	return entries
}

// PublishArtifact returns the output file name copied after each build
func (c Config) PublishArtifact() string {
	if c.Publish.Artifact != "" {
		return c.Publish.Artifact
	}
	entries := c.entryPoints()
	if len(entries) == 0 {
		return ""
	}
	return entries[0].OutputPath + ".js"
}

// MetafileLocation returns the metafile path, relative to Root unless absolute
func (c Config) MetafileLocation() string {
	if c.MetafilePath != "" {
		return c.MetafilePath
	}
	return filepath.Join(c.OutputDir, "meta.json")
}

func (c Config) producesOutput(artifact string) bool {
	for _, entry := range c.entryPoints() {
		for _, ext := range []string{".js", ".css"} {
			if filepath.ToSlash(artifact) == entry.OutputPath+ext {
				return true
			}
		}
	}
	return false
}

func (c Config) loaderMap() map[string]api.Loader {
	out := make(map[string]api.Loader, len(c.Loaders))
	for ext, name := range c.Loaders {
		out[ext] = loaders[name]
	}
	return out
}

func (c Config) banner() map[string]string {
	if c.Banner == "" {
		return nil
	}
	comment := "/*!\n" + c.Banner + "\n*/"
	return map[string]string{
		"js":  comment,
		"css": comment,
	}
}

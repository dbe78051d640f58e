package assets

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/wolfeidau/hiplotbuild/internal/publish"
)

// BuildMetadata is the part of the esbuild metafile this tool reads
type BuildMetadata struct {
	Inputs  map[string]InputInfo  `json:"inputs"`
	Outputs map[string]OutputInfo `json:"outputs"`
}

type InputInfo struct {
	Bytes int `json:"bytes"`
}

type OutputInfo struct {
	Bytes      int                     `json:"bytes"`
	EntryPoint string                  `json:"entryPoint"`
	Inputs     map[string]InputContrib `json:"inputs"`
	Imports    []ImportInfo            `json:"imports"`
}

type InputContrib struct {
	BytesInOutput int `json:"bytesInOutput"`
}

type ImportInfo struct {
	Path string `json:"path"`
}

func parseMetadata(metafile string) (*BuildMetadata, error) {
	var metadata BuildMetadata
	if err := json.Unmarshal([]byte(metafile), &metadata); err != nil {
		return nil, err
	}
	return &metadata, nil
}

// InputPaths returns every input path in sorted order
func (m *BuildMetadata) InputPaths() []string {
	paths := make([]string, 0, len(m.Inputs))
	for path := range m.Inputs {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// OutputFor returns the output path built from the given entry point
func (m *BuildMetadata) OutputFor(entryPoint string) (string, bool) {
	for path, info := range m.Outputs {
		if info.EntryPoint == entryPoint {
			return path, true
		}
	}
	return "", false
}

// Pipeline manages the asset build process and publishing of the bundle
type Pipeline struct {
	config    Config
	root      string
	publisher *publish.Publisher
	metadata  *BuildMetadata
	mu        sync.RWMutex
}

package assets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var licenseFiles = []string{"LICENSE", "LICENSE.md", "LICENSE.txt", "LICENCE", "LICENCE.md", "COPYING"}

// PackageLicense is the license notice of one bundled third party package
type PackageLicense struct {
	Name    string
	Version string
	License string
	// Contents of the license file, empty when none was found
	Text string
}

type packageManifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	License string `json:"license"`
}

// packageDir returns the node_modules package directory an input path lives in
func packageDir(input string) (string, bool) {
	parts := strings.Split(filepath.ToSlash(input), "/")

	idx := -1
	for i, part := range parts {
		if part == "node_modules" {
			idx = i
		}
	}
	if idx < 0 || idx+1 >= len(parts) {
		return "", false
	}

	end := idx + 2
	if strings.HasPrefix(parts[idx+1], "@") {
		end = idx + 3
	}
	// The package name must be a directory, not the file itself
	if end >= len(parts) {
		return "", false
	}

	return filepath.FromSlash(strings.Join(parts[:end], "/")), true
}

// collectLicenses finds the license of every package that contributed an input to the build
func collectLicenses(root string, metadata *BuildMetadata) ([]PackageLicense, error) {
	seen := make(map[string]bool)
	var packages []PackageLicense

	for _, input := range metadata.InputPaths() {
		dir, ok := packageDir(input)
		if !ok || seen[dir] {
			continue
		}
		seen[dir] = true

		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}

		pkg, err := readPackageLicense(dir)
		if err != nil {
			return nil, err
		}
		packages = append(packages, pkg)
	}

	sort.Slice(packages, func(i, j int) bool {
		return packages[i].Name < packages[j].Name
	})

	return packages, nil
}

func readPackageLicense(dir string) (PackageLicense, error) {
	pkg := PackageLicense{Name: filepath.Base(dir)}
	if parent := filepath.Base(filepath.Dir(dir)); strings.HasPrefix(parent, "@") {
		pkg.Name = parent + "/" + pkg.Name
	}

	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	switch {
	case err == nil:
		var manifest packageManifest
		if err := json.Unmarshal(data, &manifest); err != nil {
			return PackageLicense{}, fmt.Errorf("failed to parse %s/package.json: %w", dir, err)
		}
		if manifest.Name != "" {
			pkg.Name = manifest.Name
		}
		pkg.Version = manifest.Version
		pkg.License = manifest.License
	case !errors.Is(err, fs.ErrNotExist):
		return PackageLicense{}, fmt.Errorf("failed to read package manifest: %w", err)
	}

	for _, name := range licenseFiles {
		text, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return PackageLicense{}, fmt.Errorf("failed to read license file: %w", err)
		}
		pkg.Text = strings.TrimSpace(string(text))
		break
	}

	return pkg, nil
}

func writeLicenses(path string, packages []PackageLicense) error {
	buf := new(bytes.Buffer)

	for i, pkg := range packages {
		if i > 0 {
			buf.WriteString("\n\n")
		}

		header := pkg.Name
		if pkg.Version != "" {
			header += "@" + pkg.Version
		}
		if pkg.License != "" {
			header += " (" + pkg.License + ")"
		}
		buf.WriteString(header)
		buf.WriteString("\n")
		buf.WriteString(strings.Repeat("-", len(header)))
		buf.WriteString("\n")

		if pkg.Text == "" {
			buf.WriteString("no license file found\n")
			continue
		}
		buf.WriteString(pkg.Text)
		buf.WriteString("\n")
	}

	return os.WriteFile(path, buf.Bytes(), 0644)
}

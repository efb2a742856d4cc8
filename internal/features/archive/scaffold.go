package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"chatarchive/internal/core"
	"chatarchive/internal/features/archive/templates"
)

// Scaffold directory names written by NewSite
const (
	ScaffoldConfig      = "config.yaml"
	ScaffoldTemplateDir = "template"
	ScaffoldStaticDir   = "static"
)

// NewSite creates a site directory with a config file, the default
// templates and a stylesheet. Existing files are left alone unless
// overwrite is set.
func NewSite(dir, group string, overwrite bool) ([]string, error) {
	config := core.DefaultConfig()
	config.Site.Group = group
	config.Paths.TemplateDir = ScaffoldTemplateDir
	config.Paths.StaticDir = ScaffoldStaticDir

	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	files := map[string][]byte{ScaffoldConfig: data}

	entries, err := fs.ReadDir(templates.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list built-in templates: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		content, err := fs.ReadFile(templates.FS, name)
		if err != nil {
			return nil, err
		}
		if strings.HasSuffix(name, ".css") {
			files[filepath.Join(ScaffoldStaticDir, name)] = content
		} else {
			files[filepath.Join(ScaffoldTemplateDir, name)] = content
		}
	}

	var written []string
	for name, content := range files {
		path := filepath.Join(dir, name)
		if !overwrite {
			if _, err := os.Stat(path); err == nil {
				continue
			} else if !errors.Is(err, fs.ErrNotExist) {
				return written, err
			}
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return written, err
		}
		if err := atomic.WriteFile(path, bytes.NewReader(content)); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", name, err)
		}
		written = append(written, name)
	}

	return written, nil
}

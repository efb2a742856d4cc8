package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"
	"golang.org/x/sync/errgroup"

	"chatarchive/internal/core"
)

// IndexFilename is the site entry point
const IndexFilename = "index.html"

// Publisher owns the output directory. Every file is written to a
// temporary name and renamed into place, so an existence check never
// sees a half-written artifact.
type Publisher struct {
	dir    string
	logger *core.Logger
}

// NewPublisher creates a publisher for dir
func NewPublisher(dir string, logger *core.Logger) *Publisher {
	return &Publisher{dir: dir, logger: logger}
}

// Dir returns the output directory
func (p *Publisher) Dir() string {
	return p.dir
}

// Path returns the full path of a published artifact
func (p *Publisher) Path(name string) string {
	return filepath.Join(p.dir, name)
}

// Exists reports whether the artifact has been published
func (p *Publisher) Exists(name string) bool {
	_, err := os.Lstat(p.Path(name))
	return err == nil
}

// Prepare creates the output directory. With clear set, regular files
// left by a previous build are removed first; subdirectories and links
// to static and media assets are kept.
func (p *Publisher) Prepare(clear bool) error {
	if clear {
		entries, err := os.ReadDir(p.dir)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return core.NewPublishError(p.dir, err)
		}
		removed := 0
		for _, entry := range entries {
			if !entry.Type().IsRegular() && !isFileSymlink(p.Path(entry.Name()), entry) {
				continue
			}
			if err := os.Remove(p.Path(entry.Name())); err != nil {
				return core.NewPublishError(entry.Name(), err)
			}
			removed++
		}
		if removed > 0 {
			p.logger.Info("Cleared previous build output", "dir", p.dir, "files", removed)
		}
	}

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return core.NewPublishError(p.dir, err)
	}
	return nil
}

// isFileSymlink reports whether entry is a symlink to a regular file,
// such as a symlinked index.html.
func isFileSymlink(path string, entry fs.DirEntry) bool {
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Write atomically publishes data under name
func (p *Publisher) Write(name string, data []byte) error {
	if err := atomic.WriteFile(p.Path(name), bytes.NewReader(data)); err != nil {
		return core.NewPublishError(name, err)
	}
	return nil
}

// PublishIndex makes page the site entry point, as a relative symlink or a copy
func (p *Publisher) PublishIndex(page string, symlink bool) error {
	target := p.Path(IndexFilename)

	if symlink {
		tmp := target + ".tmp-link"
		os.Remove(tmp)
		if err := os.Symlink(page, tmp); err != nil {
			return core.NewPublishError(IndexFilename, err)
		}
		if err := os.Rename(tmp, target); err != nil {
			os.Remove(tmp)
			return core.NewPublishError(IndexFilename, err)
		}
		return nil
	}

	data, err := os.ReadFile(p.Path(page))
	if err != nil {
		return core.NewPublishError(IndexFilename, fmt.Errorf("read %s: %w", page, err))
	}
	return p.Write(IndexFilename, data)
}

// LinkAssets copies or symlinks each source directory into the output
// directory under its base name, unless it is already present. Failures
// are returned as warnings; they never stop a build.
func (p *Publisher) LinkAssets(ctx context.Context, dirs []string, symlink bool) []string {
	var (
		mu       sync.Mutex
		warnings []string
	)

	g, _ := errgroup.WithContext(ctx)
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		g.Go(func() error {
			if err := p.linkAsset(dir, symlink); err != nil {
				p.logger.Warn("Failed to publish assets", "source", dir, "error", err)
				mu.Lock()
				warnings = append(warnings, fmt.Sprintf("assets %s: %v", dir, err))
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	return warnings
}

func (p *Publisher) linkAsset(dir string, symlink bool) error {
	target := p.Path(filepath.Base(dir))
	if _, err := os.Lstat(target); err == nil {
		return nil
	}

	source, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	info, err := os.Stat(source)
	if err != nil {
		return err
	}

	if symlink {
		return os.Symlink(source, target)
	}

	if !info.IsDir() {
		data, err := os.ReadFile(source)
		if err != nil {
			return err
		}
		return atomic.WriteFile(target, bytes.NewReader(data))
	}

	if err := os.CopyFS(target, os.DirFS(source)); err != nil {
		return err
	}
	p.logger.Info("Copied assets", "source", dir, "target", target)
	return nil
}

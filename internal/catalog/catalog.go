// Package catalog enumerates image resources under a source folder.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/NineCSdev/nothing-wallpaper-changer/internal/rotation"
)

// ErrSourceUnavailable is returned when the folder cannot be resolved or
// read (deleted folder, revoked permission). An empty folder is not an
// error; it yields an empty catalog.
var ErrSourceUnavailable = errors.New("source unavailable")

// Builder lists the image identifiers available under a folder. Pure read,
// no state; may block on I/O and therefore runs off latency-sensitive paths.
type Builder interface {
	List(ctx context.Context, folder string) ([]rotation.ID, error)
}

// imageExts are the formats the decoder can actually handle.
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// FolderBuilder enumerates image files on the local filesystem.
//
// With no Patterns, the folder is read flat and filtered by extension.
// Patterns are doublestar globs relative to the folder (e.g. "**/*.png")
// for users who keep wallpapers in nested collections.
type FolderBuilder struct {
	Patterns []string
}

func (b FolderBuilder) List(ctx context.Context, folder string) ([]rotation.ID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(folder)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, folder, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s: not a directory", ErrSourceUnavailable, folder)
	}

	if len(b.Patterns) > 0 {
		return b.listPatterns(folder)
	}
	return b.listFlat(folder)
}

func (b FolderBuilder) listFlat(folder string) ([]rotation.ID, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, folder, err)
	}

	var out []rotation.ID
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		out = append(out, rotation.ID(filepath.Join(folder, e.Name())))
	}
	sortIDs(out)
	return out, nil
}

func (b FolderBuilder) listPatterns(folder string) ([]rotation.ID, error) {
	seen := make(map[string]bool)
	var out []rotation.ID

	for _, pattern := range b.Patterns {
		matches, err := doublestar.FilepathGlob(filepath.Join(folder, pattern))
		if err != nil {
			return nil, fmt.Errorf("%w: bad pattern %q: %w", ErrSourceUnavailable, pattern, err)
		}
		for _, m := range matches {
			abs, err := filepath.Abs(m)
			if err != nil {
				continue
			}
			fi, err := os.Stat(abs)
			if err != nil || !fi.Mode().IsRegular() {
				continue
			}
			if !imageExts[strings.ToLower(filepath.Ext(abs))] {
				continue
			}
			if !seen[abs] {
				seen[abs] = true
				out = append(out, rotation.ID(abs))
			}
		}
	}
	sortIDs(out)
	return out, nil
}

// sortIDs keeps the listing deterministic; the shuffle happens later in the
// rotation cache, not here.
func sortIDs(ids []rotation.ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

package provider

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/fioncat/vbrowse/pathcodec"
	"github.com/fioncat/vbrowse/types"
)

// Local serves a directory of the local filesystem. Logical paths are
// resolved under the root and cannot leave it, symlinks included.
type Local struct {
	root string

	// realRoot is root with symlinks resolved.
	realRoot string
}

func NewLocal(root string) (*Local, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("get abs path for %q: %w", root, err)
	}
	stat, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat local root: %w", convertOSError(err))
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("local root %q is not a directory", root)
	}
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("resolve local root: %w", convertOSError(err))
	}
	return &Local{root: root, realRoot: realRoot}, nil
}

func (p *Local) Root() string {
	return p.root
}

// resolve maps a logical path to its file, following symlinks. A target
// outside the root is reported as not found.
func (p *Local) resolve(logical string) (string, error) {
	name := filepath.Join(p.realRoot, filepath.FromSlash(pathcodec.Normalize(logical)))
	target, err := filepath.EvalSymlinks(name)
	if err != nil {
		return "", convertOSError(err)
	}
	rel, err := filepath.Rel(p.realRoot, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%q resolves outside of the root: %w", logical, types.ErrNotFound)
	}
	return target, nil
}

func (p *Local) List(ctx context.Context, dir string) ([]*types.Entry, error) {
	dir = pathcodec.Normalize(dir)
	name, err := p.resolve(dir)
	if err != nil {
		return nil, fmt.Errorf("read local dir %q: %w", dir, err)
	}
	osEnts, err := os.ReadDir(name)
	if err != nil {
		return nil, fmt.Errorf("read local dir %q: %w", dir, convertOSError(err))
	}

	ents := make([]*types.Entry, 0, len(osEnts))
	for _, osEnt := range osEnts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := osEnt.Info()
		if err != nil {
			// Removed between ReadDir and Info
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("stat %q: %w", osEnt.Name(), err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			// Show links as their target, dangling ones stay plain files.
			target, err := os.Stat(filepath.Join(name, osEnt.Name()))
			if err == nil {
				info = target
			}
		}

		ent := &types.Entry{
			Name:       osEnt.Name(),
			Kind:       types.KindFile,
			ModifiedAt: info.ModTime().Format(modifiedLayout),
			Path:       path.Join(dir, osEnt.Name()),
		}
		if info.IsDir() {
			ent.Kind = types.KindFolder
		} else {
			ent.Size = info.Size()
		}
		ents = append(ents, ent)
	}
	sortEntries(ents)

	return ents, nil
}

func (p *Local) ReadFile(ctx context.Context, file string) ([]byte, error) {
	file = pathcodec.Normalize(file)
	name, err := p.resolve(file)
	if err != nil {
		return nil, fmt.Errorf("read local file %q: %w", file, err)
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("read local file %q: %w", file, convertOSError(err))
	}
	defer f.Close()

	data, err := readAll(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("read local file %q: %w", file, convertOSError(err))
	}
	return data, nil
}

func convertOSError(err error) error {
	switch {
	case os.IsNotExist(err):
		return fmt.Errorf("%v: %w", err, types.ErrNotFound)
	case os.IsPermission(err):
		return fmt.Errorf("%v: %w", err, types.ErrUnavailable)
	}
	return err
}

package provider

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/fioncat/vbrowse/pathcodec"
	"github.com/fioncat/vbrowse/types"
	"github.com/mholt/archives"
)

// Archive serves the tree inside an archive file (zip, tar, 7z and the other
// formats archives can identify) without extracting it.
type Archive struct {
	name string
	fsys fs.FS
}

func NewArchive(filename string) (*Archive, error) {
	fsys, err := archives.FileSystem(context.Background(), filename, nil)
	if err != nil {
		return nil, fmt.Errorf("open archive %q: %w", filename, convertFSError(err))
	}
	return &Archive{name: filename, fsys: fsys}, nil
}

// archiveName converts a logical path into an io/fs name.
func archiveName(p string) string {
	name := strings.TrimPrefix(pathcodec.Normalize(p), "/")
	if name == "" {
		return "."
	}
	return name
}

func (p *Archive) List(ctx context.Context, dir string) ([]*types.Entry, error) {
	dir = pathcodec.Normalize(dir)
	fsEnts, err := fs.ReadDir(p.fsys, archiveName(dir))
	if err != nil {
		return nil, fmt.Errorf("read archive dir %q: %w", dir, convertFSError(err))
	}

	ents := make([]*types.Entry, 0, len(fsEnts))
	for _, fsEnt := range fsEnts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ent := &types.Entry{
			Name: fsEnt.Name(),
			Kind: types.KindFile,
			Path: path.Join(dir, fsEnt.Name()),
		}
		if fsEnt.IsDir() {
			ent.Kind = types.KindFolder
		}
		info, err := fsEnt.Info()
		if err == nil {
			ent.ModifiedAt = info.ModTime().Format(modifiedLayout)
			if !fsEnt.IsDir() {
				ent.Size = info.Size()
			}
		}
		ents = append(ents, ent)
	}
	sortEntries(ents)

	return ents, nil
}

func (p *Archive) ReadFile(ctx context.Context, file string) ([]byte, error) {
	file = pathcodec.Normalize(file)
	f, err := p.fsys.Open(archiveName(file))
	if err != nil {
		return nil, fmt.Errorf("read archive file %q: %w", file, convertFSError(err))
	}
	defer f.Close()

	data, err := readAll(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("read archive file %q: %w", file, convertFSError(err))
	}
	return data, nil
}

func convertFSError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%v: %w", err, types.ErrNotFound)
	}
	return err
}

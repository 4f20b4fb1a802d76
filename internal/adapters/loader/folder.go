package loader

import (
	"context"
	"io/fs"
	"path/filepath"
	"slices"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/hoard/internal/core/domain"
)

// Tree is the handle of a folder artifact: every regular file keyed by its slash-separated
// path relative to Root.
type Tree struct {
	Root  string
	Files map[string][]byte
}

// Names lists the files of the tree in order.
func (t *Tree) Names() []string {
	names := make([]string, 0, len(t.Files))
	for name := range t.Files {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Folder loads a directory of component files. Hidden files are skipped.
type Folder struct{}

// Load reads every file under path. The digest covers names and contents in path order.
func (Folder) Load(ctx context.Context, path string) (domain.Artifact, error) {
	tree := &Tree{Root: path, Files: make(map[string][]byte)}
	var size int64

	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != path && d.Name()[0] == '.' {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := readFile(ctx, p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(path, p)
		if err != nil {
			return err
		}
		tree.Files[filepath.ToSlash(rel)] = data
		size += int64(len(data))
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return domain.Artifact{}, ctx.Err()
		}
		return domain.Artifact{}, storageError(path, err)
	}

	digest := xxhash.New()
	for _, name := range tree.Names() {
		_, _ = digest.WriteString(name)
		_, _ = digest.Write([]byte{0})
		_, _ = digest.Write(tree.Files[name])
	}

	return domain.Artifact{Handle: tree, Size: size, Digest: digest.Sum64()}, nil
}

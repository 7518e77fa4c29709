package frames

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/datar-psa/goeqa/api"
)

const (
	// DefaultMetadataFile is the frame-metadata document expected in every scene folder
	DefaultMetadataFile = "snapshots_inclusive_merged.json"
	// DefaultImageSubdir holds the frame images of a scene
	DefaultImageSubdir = "results"
)

// Resolver locates scene folders under a frames root directory.
type Resolver struct {
	Root         string
	MetadataFile string
	ImageSubdir  string
}

// NewResolver returns a Resolver rooted at root with the default layout.
func NewResolver(root string) *Resolver {
	return &Resolver{
		Root:         root,
		MetadataFile: DefaultMetadataFile,
		ImageSubdir:  DefaultImageSubdir,
	}
}

// Scene is a resolved scene folder and the frame names listed in its metadata.
type Scene struct {
	ID          string
	Dir         string
	ImageSubdir string
	// FrameNames are the keys of the metadata mapping, unordered
	FrameNames []string
}

// Resolve loads the metadata of sceneID. A missing scene folder or metadata
// document yields an *api.MissingAssetError; an unreadable or malformed
// metadata document is returned as a plain error.
func (r *Resolver) Resolve(sceneID string) (*Scene, error) {
	if sceneID == "" {
		return nil, &api.MissingAssetError{Scene: sceneID, Path: r.Root}
	}
	dir := filepath.Join(r.Root, sceneID)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, &api.MissingAssetError{Scene: sceneID, Path: dir}
	}

	metaPath := filepath.Join(dir, r.metadataFile())
	data, err := os.ReadFile(metaPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &api.MissingAssetError{Scene: sceneID, Path: metaPath}
	}
	if err != nil {
		return nil, fmt.Errorf("read scene metadata: %w", err)
	}

	var meta map[string]json.RawMessage
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse scene metadata %s: %w", metaPath, err)
	}

	names := make([]string, 0, len(meta))
	for name := range meta {
		names = append(names, name)
	}
	return &Scene{
		ID:          sceneID,
		Dir:         dir,
		ImageSubdir: r.imageSubdir(),
		FrameNames:  names,
	}, nil
}

// Frames returns up to n frame paths of the scene in deterministic order.
func (s *Scene) Frames(n int) []string {
	return Select(s.Dir, s.ImageSubdir, s.FrameNames, n)
}

func (r *Resolver) metadataFile() string {
	if r.MetadataFile == "" {
		return DefaultMetadataFile
	}
	return r.MetadataFile
}

func (r *Resolver) imageSubdir() string {
	if r.ImageSubdir == "" {
		return DefaultImageSubdir
	}
	return r.ImageSubdir
}

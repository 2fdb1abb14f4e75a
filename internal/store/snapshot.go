package store

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	recallerrors "github.com/recall-notes/recall/internal/errors"
)

// On-disk artifact names inside the index directory.
const (
	VectorsFile   = "vectors.idx"
	DocumentsFile = "documents.gob"
)

// snapshotVersion guards against loading snapshots written by an
// incompatible format.
const snapshotVersion = 1

// vectorSnapshot is the gob payload for the vector artifact.
type vectorSnapshot struct {
	Version    int
	Dimensions int
	Vectors    [][]float32
}

// documentSnapshot is the gob payload for the document artifact.
type documentSnapshot struct {
	Version   int
	ModelName string
	Documents []Document
}

// SnapshotMeta describes a loaded snapshot.
type SnapshotMeta struct {
	Dimensions int
	ModelName  string
}

// Save writes both artifacts to dir atomically: each file is written to
// a temp name and renamed into place, so a crash mid-write never leaves
// a truncated artifact behind.
func Save(dir string, index *FlatIndex, docs *DocumentStore, modelName string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return recallerrors.New(recallerrors.ErrCodePersistFailed,
			fmt.Sprintf("failed to create index directory %s", dir), err)
	}

	vecs := vectorSnapshot{
		Version:    snapshotVersion,
		Dimensions: index.Dimensions(),
		Vectors:    index.Vectors(),
	}
	if err := writeGob(filepath.Join(dir, VectorsFile), vecs); err != nil {
		return err
	}

	snap := documentSnapshot{
		Version:   snapshotVersion,
		ModelName: modelName,
		Documents: docs.All(),
	}
	return writeGob(filepath.Join(dir, DocumentsFile), snap)
}

// Load reads both artifacts from dir. A missing snapshot returns
// os.ErrNotExist wrapped; any decode failure, version mismatch, or
// misalignment between the two artifacts returns a corruption error so
// the caller can fall back to an empty state.
func Load(dir string) (*FlatIndex, *DocumentStore, SnapshotMeta, error) {
	var meta SnapshotMeta

	var vecs vectorSnapshot
	if err := readGob(filepath.Join(dir, VectorsFile), &vecs); err != nil {
		return nil, nil, meta, err
	}

	var snap documentSnapshot
	if err := readGob(filepath.Join(dir, DocumentsFile), &snap); err != nil {
		return nil, nil, meta, err
	}

	if vecs.Version != snapshotVersion || snap.Version != snapshotVersion {
		return nil, nil, meta, recallerrors.New(recallerrors.ErrCodeCorruptIndex,
			fmt.Sprintf("snapshot version mismatch (vectors=%d documents=%d want=%d)",
				vecs.Version, snap.Version, snapshotVersion), nil)
	}
	if len(vecs.Vectors) != len(snap.Documents) {
		return nil, nil, meta, recallerrors.New(recallerrors.ErrCodeCorruptIndex,
			fmt.Sprintf("snapshot misaligned: %d vectors but %d documents",
				len(vecs.Vectors), len(snap.Documents)), nil)
	}
	for i, vec := range vecs.Vectors {
		if len(vec) != vecs.Dimensions {
			return nil, nil, meta, recallerrors.New(recallerrors.ErrCodeCorruptIndex,
				fmt.Sprintf("snapshot vector %d has dimension %d, want %d",
					i, len(vec), vecs.Dimensions), nil)
		}
	}

	index := NewFlatIndex(vecs.Dimensions)
	if err := index.Add(vecs.Vectors); err != nil {
		return nil, nil, meta, recallerrors.Wrap(recallerrors.ErrCodeCorruptIndex, err)
	}

	docs := NewDocumentStore()
	docs.Add(snap.Documents)

	meta.Dimensions = vecs.Dimensions
	meta.ModelName = snap.ModelName
	return index, docs, meta, nil
}

// Exists reports whether both artifacts are present in dir.
func Exists(dir string) bool {
	for _, name := range []string{VectorsFile, DocumentsFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}

// Remove deletes both artifacts. Missing files are not an error.
func Remove(dir string) error {
	for _, name := range []string{VectorsFile, DocumentsFile} {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			return recallerrors.New(recallerrors.ErrCodePersistFailed,
				fmt.Sprintf("failed to remove %s", name), err)
		}
	}
	return nil
}

func writeGob(path string, payload any) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return recallerrors.New(recallerrors.ErrCodePersistFailed,
			fmt.Sprintf("failed to create %s", tmp), err)
	}

	if err := gob.NewEncoder(f).Encode(payload); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return recallerrors.New(recallerrors.ErrCodePersistFailed,
			fmt.Sprintf("failed to encode %s", filepath.Base(path)), err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return recallerrors.New(recallerrors.ErrCodePersistFailed,
			fmt.Sprintf("failed to sync %s", tmp), err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return recallerrors.New(recallerrors.ErrCodePersistFailed,
			fmt.Sprintf("failed to close %s", tmp), err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return recallerrors.New(recallerrors.ErrCodePersistFailed,
			fmt.Sprintf("failed to replace %s", filepath.Base(path)), err)
	}
	return nil
}

func readGob(path string, payload any) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		return recallerrors.New(recallerrors.ErrCodeCorruptIndex,
			fmt.Sprintf("failed to open %s", filepath.Base(path)), err)
	}
	defer func() { _ = f.Close() }()

	if err := gob.NewDecoder(f).Decode(payload); err != nil {
		return recallerrors.New(recallerrors.ErrCodeCorruptIndex,
			fmt.Sprintf("failed to decode %s", filepath.Base(path)), err)
	}
	return nil
}

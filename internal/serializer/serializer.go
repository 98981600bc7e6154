// Package serializer writes per-tile terrain artifacts to the on-disk
// pyramid layout spec.md §6 specifies: <outDir>/<zoom>/<x>/<y>.terrain.
//
// Filesystem access goes through afero.Fs so the pipeline can be driven
// against an in-memory filesystem in tests, the same testability seam the
// pack's other server/storage repos (see DESIGN.md) use afero for.
package serializer

import (
	"fmt"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/spf13/afero"

	"github.com/geodata/ctb-tile/internal/ctberr"
	"github.com/geodata/ctb-tile/internal/grid"
)

// Serializer writes tile payloads to a directory tree, creating the
// `<zoom>/<x>` directory prefix on demand. Directory creation is guarded by
// a mutex since afero.Fs implementations are not guaranteed safe for
// concurrent MkdirAll calls on overlapping paths; the actual tile write
// goes through a temp-file-then-rename sequence so a killed worker can
// never leave a half-written `.terrain` file behind, matching the
// temp-then-finalize idiom in internal/pmtiles/writer.go.
type Serializer struct {
	fs      afero.Fs
	outDir  string
	resume  bool

	mu      sync.Mutex
	madeDir map[string]bool
}

// New returns a Serializer rooted at outDir. When resume is true,
// MustSerialize reports false for tiles that already exist on disk so the
// driver can skip re-generating them.
func New(fs afero.Fs, outDir string, resume bool) *Serializer {
	return &Serializer{
		fs:      fs,
		outDir:  outDir,
		resume:  resume,
		madeDir: make(map[string]bool),
	}
}

func tilePath(outDir string, coord grid.TileCoordinate, extension string) string {
	return filepath.Join(
		outDir,
		strconv.Itoa(int(coord.Zoom)),
		strconv.Itoa(int(coord.X)),
		strconv.Itoa(int(coord.Y))+extension,
	)
}

// MustSerialize reports whether coord's tile still needs to be written: in
// resume mode, a tile already present on disk is skipped.
func (s *Serializer) MustSerialize(coord grid.TileCoordinate, extension string) (bool, error) {
	if !s.resume {
		return true, nil
	}
	exists, err := s.Exists(coord, extension)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// Exists reports whether coord's tile is already present on disk,
// regardless of resume mode. Used by the cesium-friendly root-tile
// post-pass to decide which of the two zoom-0 tiles is missing.
func (s *Serializer) Exists(coord grid.TileCoordinate, extension string) (bool, error) {
	path := tilePath(s.outDir, coord, extension)
	exists, err := afero.Exists(s.fs, path)
	if err != nil {
		return false, ctberr.At(ctberr.Io, ctberr.Coord{Zoom: coord.Zoom, X: coord.X, Y: coord.Y}, fmt.Errorf("checking existing tile %s: %w", path, err))
	}
	return exists, nil
}

// WriteTile writes data to coord's tile path, creating its parent directory
// tree if needed, via a temp-file-then-rename sequence.
func (s *Serializer) WriteTile(coord grid.TileCoordinate, extension string, data []byte) error {
	ctx := ctberr.Coord{Zoom: coord.Zoom, X: coord.X, Y: coord.Y}

	dir := filepath.Join(s.outDir, strconv.Itoa(int(coord.Zoom)), strconv.Itoa(int(coord.X)))
	if err := s.ensureDir(dir); err != nil {
		return ctberr.At(ctberr.Io, ctx, err)
	}

	finalPath := filepath.Join(dir, strconv.Itoa(int(coord.Y))+extension)
	tmpPath := finalPath + ".tmp"

	f, err := s.fs.Create(tmpPath)
	if err != nil {
		return ctberr.At(ctberr.Io, ctx, fmt.Errorf("creating %s: %w", tmpPath, err))
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		s.fs.Remove(tmpPath)
		return ctberr.At(ctberr.Io, ctx, fmt.Errorf("writing %s: %w", tmpPath, err))
	}
	if err := f.Close(); err != nil {
		s.fs.Remove(tmpPath)
		return ctberr.At(ctberr.Io, ctx, fmt.Errorf("closing %s: %w", tmpPath, err))
	}

	if err := s.fs.Rename(tmpPath, finalPath); err != nil {
		return ctberr.At(ctberr.Io, ctx, fmt.Errorf("renaming %s to %s: %w", tmpPath, finalPath, err))
	}
	return nil
}

// WriteFile writes data at an arbitrary path relative to outDir (used for
// layer.json, which lives at the pyramid root rather than under a
// <zoom>/<x>/<y> tile path).
func (s *Serializer) WriteFile(relPath string, data []byte) error {
	path := filepath.Join(s.outDir, relPath)
	if err := s.ensureDir(filepath.Dir(path)); err != nil {
		return ctberr.New(ctberr.Io, err)
	}

	tmpPath := path + ".tmp"
	f, err := s.fs.Create(tmpPath)
	if err != nil {
		return ctberr.New(ctberr.Io, fmt.Errorf("creating %s: %w", tmpPath, err))
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		s.fs.Remove(tmpPath)
		return ctberr.New(ctberr.Io, fmt.Errorf("writing %s: %w", tmpPath, err))
	}
	if err := f.Close(); err != nil {
		s.fs.Remove(tmpPath)
		return ctberr.New(ctberr.Io, fmt.Errorf("closing %s: %w", tmpPath, err))
	}
	if err := s.fs.Rename(tmpPath, path); err != nil {
		return ctberr.New(ctberr.Io, fmt.Errorf("renaming %s to %s: %w", tmpPath, path, err))
	}
	return nil
}

func (s *Serializer) ensureDir(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.madeDir[dir] {
		return nil
	}
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	s.madeDir[dir] = true
	return nil
}

package serializer

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/geodata/ctb-tile/internal/grid"
)

func TestWriteTileCreatesPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/out", false)

	coord := grid.TileCoordinate{Zoom: 3, X: 5, Y: 7}
	require.NoError(t, s.WriteTile(coord, ".terrain", []byte("payload")))

	got, err := afero.ReadFile(fs, "/out/3/5/7.terrain")
	require.NoError(t, err)
	require.Equal(t, "payload", string(got))

	exists, err := afero.Exists(fs, "/out/3/5/7.terrain.tmp")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestMustSerializeResumeMode(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/out", true)

	coord := grid.TileCoordinate{Zoom: 1, X: 0, Y: 0}
	must, err := s.MustSerialize(coord, ".terrain")
	require.NoError(t, err)
	require.True(t, must)

	require.NoError(t, s.WriteTile(coord, ".terrain", []byte("x")))

	must, err = s.MustSerialize(coord, ".terrain")
	require.NoError(t, err)
	require.False(t, must)
}

func TestMustSerializeWithoutResumeAlwaysTrue(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/out", false)

	coord := grid.TileCoordinate{Zoom: 1, X: 0, Y: 0}
	require.NoError(t, s.WriteTile(coord, ".terrain", []byte("x")))

	must, err := s.MustSerialize(coord, ".terrain")
	require.NoError(t, err)
	require.True(t, must)
}

func TestWriteFileAtRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/out", false)

	require.NoError(t, s.WriteFile("layer.json", []byte(`{"tilejson":"2.1.0"}`)))

	got, err := afero.ReadFile(fs, "/out/layer.json")
	require.NoError(t, err)
	require.Equal(t, `{"tilejson":"2.1.0"}`, string(got))
}

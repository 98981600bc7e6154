package raster

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/geodata/ctb-tile/internal/ctberr"
)

func TestNewTransformerIdentityWhenSRSMatch(t *testing.T) {
	tr, err := NewTransformer(4326, 4326)
	require.NoError(t, err)

	lon, lat := tr.ToGrid(12.5, 47.25)
	require.Equal(t, 12.5, lon)
	require.Equal(t, 47.25, lat)
}

func TestNewTransformerRejectsUnknownEPSG(t *testing.T) {
	_, err := NewTransformer(99999, 4326)
	require.Error(t, err)

	_, err = NewTransformer(4326, 99999)
	require.Error(t, err)
}

func TestReprojectBoundsMercatorToGeodeticEnclosesAllFourCorners(t *testing.T) {
	tr, err := NewTransformer(3857, 4326)
	require.NoError(t, err)

	// A rectangle in Web Mercator metres, roughly covering western Europe.
	bounds := tr.ReprojectBounds(-1000000, 4500000, 1500000, 6500000)

	require.Less(t, bounds.Min.X, bounds.Max.X)
	require.Less(t, bounds.Min.Y, bounds.Max.Y)
	require.InDelta(t, -180.0, bounds.Min.X, 180.0) // sanity: within valid lon range
	require.LessOrEqual(t, bounds.Max.X, 180.0)
	require.GreaterOrEqual(t, bounds.Min.Y, -90.0)
	require.LessOrEqual(t, bounds.Max.Y, 90.0)
}

// windowErrorSource always fails with a Window-kind error until a given
// number of overviews have been pushed, at which point it starts
// succeeding. It records push/pop calls so tests can assert the stack
// discipline WarpWithOverviewRetry is required to maintain.
type windowErrorSource struct {
	succeedAfterPushes int
	pushes             int
	pops               int
}

func (s *windowErrorSource) GeoTransform() GeoTransform { return GeoTransform{} }
func (s *windowErrorSource) ProjectionEPSG() int        { return 4326 }
func (s *windowErrorSource) RasterSize() (int, int)     { return 1, 1 }
func (s *windowErrorSource) NoData() (float64, bool)    { return 0, false }
func (s *windowErrorSource) Close() error               { return nil }

func (s *windowErrorSource) PushOverview() error {
	s.pushes++
	return nil
}

func (s *windowErrorSource) PopOverview() {
	s.pops++
}

func (s *windowErrorSource) Warp(spec WarpSpec) (*Window, error) {
	if s.pushes >= s.succeedAfterPushes {
		return &Window{Width: spec.TargetWidth, Height: spec.TargetHeight}, nil
	}
	return nil, ctberr.New(ctberr.Window, errors.New("simulated transform overflow"))
}

func TestWarpWithOverviewRetrySucceedsAfterEnoughOverviews(t *testing.T) {
	src := &windowErrorSource{succeedAfterPushes: 2}

	win, err := WarpWithOverviewRetry(src, WarpSpec{TargetWidth: 65, TargetHeight: 65}, 8)
	require.NoError(t, err)
	require.NotNil(t, win)
	require.Equal(t, 2, src.pushes)
	require.Equal(t, 2, src.pops, "each pushed overview must be popped, including the one on the successful attempt")
}

func TestWarpWithOverviewRetryExhaustsAndReturnsLastError(t *testing.T) {
	src := &windowErrorSource{succeedAfterPushes: 100}

	_, err := WarpWithOverviewRetry(src, WarpSpec{TargetWidth: 65, TargetHeight: 65}, 3)
	require.Error(t, err)
	require.Equal(t, 3, src.pushes)
	require.Equal(t, 3, src.pops)
}

func TestWarpWithOverviewRetryPassesThroughNonWindowErrors(t *testing.T) {
	src := &failAlwaysNonWindowSource{}
	_, err := WarpWithOverviewRetry(src, WarpSpec{}, 4)
	require.Error(t, err)
	require.False(t, src.pushed, "non-Window-kind errors must not trigger an overview retry")
}

type failAlwaysNonWindowSource struct {
	pushed bool
}

func (s *failAlwaysNonWindowSource) GeoTransform() GeoTransform { return GeoTransform{} }
func (s *failAlwaysNonWindowSource) ProjectionEPSG() int        { return 4326 }
func (s *failAlwaysNonWindowSource) RasterSize() (int, int)     { return 1, 1 }
func (s *failAlwaysNonWindowSource) NoData() (float64, bool)    { return 0, false }
func (s *failAlwaysNonWindowSource) Close() error               { return nil }
func (s *failAlwaysNonWindowSource) PopOverview()               {}

func (s *failAlwaysNonWindowSource) PushOverview() error {
	s.pushed = true
	return nil
}

func (s *failAlwaysNonWindowSource) Warp(spec WarpSpec) (*Window, error) {
	return nil, ctberr.New(ctberr.Config, errors.New("simulated unrelated failure"))
}

package coord

import (
	"math"
	"testing"
)

func TestWebMercatorProjEPSG(t *testing.T) {
	p := &WebMercatorProj{}
	if p.EPSG() != 3857 {
		t.Fatalf("EPSG() = %d, want 3857", p.EPSG())
	}
}

func TestWebMercatorRoundTrip(t *testing.T) {
	p := &WebMercatorProj{}
	cases := []struct{ lon, lat float64 }{
		{0, 0},
		{8.5417, 47.3769}, // Zurich
		{-74.0060, 40.7128},
		{179.9, -60},
	}
	for _, c := range cases {
		x, y := p.FromWGS84(c.lon, c.lat)
		gotLon, gotLat := p.ToWGS84(x, y)
		if math.Abs(gotLon-c.lon) > 1e-6 {
			t.Errorf("lon round-trip %v -> %v -> %v", c.lon, x, gotLon)
		}
		if math.Abs(gotLat-c.lat) > 1e-6 {
			t.Errorf("lat round-trip %v -> %v -> %v", c.lat, y, gotLat)
		}
	}
}

func TestWebMercatorOriginIsOrigin(t *testing.T) {
	p := &WebMercatorProj{}
	x, y := p.FromWGS84(0, 0)
	if math.Abs(x) > 1e-9 || math.Abs(y) > 1e-9 {
		t.Errorf("FromWGS84(0,0) = (%v, %v), want (0, 0)", x, y)
	}
}

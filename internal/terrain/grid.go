package terrain

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LatLonGrid is a concrete terrain.Grid backed by a uniform lat/lon
// elevation array, the 2D-array-with-cell-size shape grounded on the
// teacher pack's navigation.TerrainData, reprojected from a local
// meter grid onto geographic coordinates since the terrain guard
// works in lat/lon rather than a vehicle-local frame.
type LatLonGrid struct {
	elevation                [][]float64
	originLat, originLon     float64
	cellSizeLat, cellSizeLon float64
	rows, cols               int
	fallbackFt               float64
}

// NewLatLonGrid builds a grid from a row-major elevation matrix (feet)
// whose [0][0] cell is anchored at (originLat, originLon), with each
// cell spanning cellSizeLat/cellSizeLon degrees. fallbackFt is
// returned for any query outside the grid's bounds.
func NewLatLonGrid(elevation [][]float64, originLat, originLon, cellSizeLat, cellSizeLon, fallbackFt float64) *LatLonGrid {
	rows := len(elevation)
	cols := 0
	if rows > 0 {
		cols = len(elevation[0])
	}
	return &LatLonGrid{
		elevation:   elevation,
		originLat:   originLat,
		originLon:   originLon,
		cellSizeLat: cellSizeLat,
		cellSizeLon: cellSizeLon,
		rows:        rows,
		cols:        cols,
		fallbackFt:  fallbackFt,
	}
}

// ElevationFt implements terrain.Grid by returning the cell that
// contains the point (offsets from the origin truncated to whole
// cells), or the configured fallback outside the grid's coverage.
func (g *LatLonGrid) ElevationFt(lat, lon float64) float64 {
	if g.rows == 0 || g.cols == 0 || g.cellSizeLat == 0 || g.cellSizeLon == 0 {
		return g.fallbackFt
	}
	row := int((lat - g.originLat) / g.cellSizeLat)
	col := int((lon - g.originLon) / g.cellSizeLon)
	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		return g.fallbackFt
	}
	return g.elevation[row][col]
}

// ConstantGrid is the degenerate terrain.Grid used when no real
// elevation data is available (spec §4.3.6 still runs the look-ahead
// projection; it just never trips a band above the constant).
type ConstantGrid struct {
	ElevFt float64
}

// ElevationFt implements terrain.Grid, returning a fixed elevation
// everywhere.
func (g ConstantGrid) ElevationFt(lat, lon float64) float64 {
	return g.ElevFt
}

// LoadLatLonGridCSV reads a "lat,lon,elevation_ft" CSV sample set and
// rasterizes it onto a uniform grid at the given cell size; when
// several samples fall in one cell, the last one read wins. Intended for bench datasets exported from a
// scenery tool; a sparse or empty file yields an all-fallback grid.
func LoadLatLonGridCSV(path string, cellSizeLat, cellSizeLon, fallbackFt float64) (*LatLonGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open terrain csv %s: %w", path, err)
	}
	defer f.Close()

	type sample struct{ lat, lon, elevFt float64 }
	var samples []sample
	minLat, minLon := 1e9, 1e9
	maxLat, maxLon := -1e9, -1e9

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 3 {
			continue
		}
		lat, err1 := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		lon, err2 := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		elev, err3 := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		samples = append(samples, sample{lat, lon, elev})
		minLat, maxLat = minf(minLat, lat), maxf(maxLat, lat)
		minLon, maxLon = minf(minLon, lon), maxf(maxLon, lon)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read terrain csv %s: %w", path, err)
	}
	if len(samples) == 0 {
		return NewLatLonGrid(nil, 0, 0, cellSizeLat, cellSizeLon, fallbackFt), nil
	}

	rows := int((maxLat-minLat)/cellSizeLat) + 1
	cols := int((maxLon-minLon)/cellSizeLon) + 1
	elevation := make([][]float64, rows)
	for i := range elevation {
		elevation[i] = make([]float64, cols)
		for j := range elevation[i] {
			elevation[i][j] = fallbackFt
		}
	}
	for _, s := range samples {
		row := int((s.lat - minLat) / cellSizeLat)
		col := int((s.lon - minLon) / cellSizeLon)
		if row >= 0 && row < rows && col >= 0 && col < cols {
			elevation[row][col] = s.elevFt
		}
	}

	return NewLatLonGrid(elevation, minLat, minLon, cellSizeLat, cellSizeLon, fallbackFt), nil
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

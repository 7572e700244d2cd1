package epinet

import (
	"bufio"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula,
// per spec.md §4.1.
const earthRadiusKm = 6367.0

// Coordinate is a (lat, lon) pair in decimal degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Distance returns the great-circle distance between p and q in
// kilometers using the haversine formula.
func Distance(p, q Coordinate) float64 {
	const toRad = math.Pi / 180
	dLat := (q.Lat - p.Lat) * toRad
	dLon := (q.Lon - p.Lon) * toRad
	lat1 := p.Lat * toRad
	lat2 := q.Lat * toRad

	sinDLat2 := math.Sin(dLat / 2)
	sinDLon2 := math.Sin(dLon / 2)
	a := sinDLat2*sinDLat2 + math.Cos(lat1)*math.Cos(lat2)*sinDLon2*sinDLon2
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// CoordinateCatalog is a fixed, read-only table of candidate household
// locations sampled from during network construction. Per spec.md §5 it
// is shared read-only across runs.
type CoordinateCatalog struct {
	points []Coordinate
}

// Len returns the number of coordinates in the catalog.
func (c *CoordinateCatalog) Len() int {
	return len(c.points)
}

// At returns the i-th coordinate in the catalog.
func (c *CoordinateCatalog) At(i int) Coordinate {
	return c.points[i]
}

// NewCoordinateCatalog wraps an in-memory slice of coordinates.
func NewCoordinateCatalog(points []Coordinate) *CoordinateCatalog {
	return &CoordinateCatalog{points: points}
}

// LoadCoordinateCatalog parses a whitespace/comma-delimited text file of
// "lat,lon" rows into a CoordinateCatalog.
func LoadCoordinateCatalog(path string) (*CoordinateCatalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening coordinate catalog %s", path)
	}
	defer f.Close()

	var points []Coordinate
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == '\t' || r == ' '
		})
		if len(fields) < 2 {
			return nil, errors.Errorf("coordinate catalog %s: line %d: expected lat,lon", path, lineNum)
		}
		lat, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "coordinate catalog %s: line %d: parsing latitude", path, lineNum)
		}
		lon, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "coordinate catalog %s: line %d: parsing longitude", path, lineNum)
		}
		points = append(points, Coordinate{Lat: lat, Lon: lon})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading coordinate catalog %s", path)
	}
	return &CoordinateCatalog{points: points}, nil
}

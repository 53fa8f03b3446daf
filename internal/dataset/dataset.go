// Package dataset loads the circles used to exercise the spatial joins: the
// cellular tower and US cities CSV files, or synthetic data.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-faker/faker/v4"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/peterstace/spatialjoin/rtree"
)

// kmPerDegree approximates the length of one degree of latitude.
const kmPerDegree = 111.0

// File names expected by LoadBoth.
const (
	TowersFile = "Cellular_Towers.csv"
	CitiesFile = "uscities.csv"
)

// ErrMissingColumn is returned when a CSV header lacks a required column.
var ErrMissingColumn = errors.New("dataset: missing column")

// TowerRadius draws the coverage radius of a cellular tower, in degrees. The
// radius is normally distributed around 20 km and clamped to [2, 25] km.
type TowerRadius struct {
	dist distuv.Normal
}

// NewTowerRadius creates a TowerRadius drawing from src.
func NewTowerRadius(src rand.Source) *TowerRadius {
	return &TowerRadius{dist: distuv.Normal{Mu: 20, Sigma: 9, Src: src}}
}

// Rand gives the next radius.
func (r *TowerRadius) Rand() float64 {
	km := math.Min(25, math.Max(2, r.dist.Rand()))
	return km / kmPerDegree
}

// LoadTowers reads tower positions from CSV rows of (id, x, y) following a
// header row.
func LoadTowers(r io.Reader, radius *TowerRadius) ([]rtree.Circle, error) {
	rd := csv.NewReader(r)
	rd.FieldsPerRecord = -1
	if _, err := rd.Read(); err != nil {
		return nil, fmt.Errorf("dataset: reading tower header: %w", err)
	}
	var circles []rtree.Circle
	for {
		row, err := rd.Read()
		if err == io.EOF {
			return circles, nil
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: reading towers: %w", err)
		}
		line, _ := rd.FieldPos(0)
		if len(row) < 3 {
			return nil, fmt.Errorf("dataset: towers line %d: expected 3 fields, got %d", line, len(row))
		}
		if _, err := strconv.Atoi(row[0]); err != nil {
			return nil, fmt.Errorf("dataset: towers line %d: id: %w", line, err)
		}
		x, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("dataset: towers line %d: x: %w", line, err)
		}
		y, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("dataset: towers line %d: y: %w", line, err)
		}
		circles = append(circles, rtree.Circle{X: x, Y: y, Radius: radius.Rand()})
	}
}

// LoadCities reads US cities from CSV with a header naming at least the lat,
// lng, population and density columns. Each city becomes a circle whose area
// matches population/density km², or 5 km² when either is unknown.
func LoadCities(r io.Reader) ([]rtree.Circle, error) {
	rd := csv.NewReader(r)
	header, err := rd.Read()
	if err != nil {
		return nil, fmt.Errorf("dataset: reading city header: %w", err)
	}
	cols := make(map[string]int)
	for _, name := range []string{"lat", "lng", "population", "density"} {
		idx := indexOf(header, name)
		if idx == -1 {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, name)
		}
		cols[name] = idx
	}

	var circles []rtree.Circle
	for {
		row, err := rd.Read()
		if err == io.EOF {
			return circles, nil
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: reading cities: %w", err)
		}
		line, _ := rd.FieldPos(0)
		var vals [4]float64
		for i, name := range []string{"lat", "lng", "population", "density"} {
			v, err := strconv.ParseFloat(row[cols[name]], 64)
			if err != nil {
				return nil, fmt.Errorf("dataset: cities line %d: %s: %w", line, name, err)
			}
			vals[i] = v
		}
		lat, lng, population, density := vals[0], vals[1], vals[2], vals[3]
		circles = append(circles, rtree.Circle{X: lng, Y: lat, Radius: cityRadius(population, density)})
	}
}

// cityRadius gives the radius in degrees of a circle covering the estimated
// area of a city, clamped to [0.5, 1000] km.
func cityRadius(population, density float64) float64 {
	area := 5.0
	if density > 0 && population > 0 {
		area = population / density
	}
	km := math.Max(0.5, math.Min(1000, math.Sqrt(area/3.14)))
	return km / kmPerDegree
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

// LoadBoth loads the tower and city files from dir. If limit is positive, at
// most limit/2 of each are returned (a limit of 1 keeps one tower and no
// cities).
func LoadBoth(dir string, limit int, src rand.Source) (towers, cities []rtree.Circle, err error) {
	towers, err = loadFile(filepath.Join(dir, TowersFile), func(r io.Reader) ([]rtree.Circle, error) {
		return LoadTowers(r, NewTowerRadius(src))
	})
	if err != nil {
		return nil, nil, err
	}
	cities, err = loadFile(filepath.Join(dir, CitiesFile), LoadCities)
	if err != nil {
		return nil, nil, err
	}

	switch {
	case limit <= 0:
	case limit == 1:
		towers, cities = truncate(towers, 1), nil
	default:
		towers, cities = truncate(towers, limit/2), truncate(cities, limit/2)
	}
	return towers, cities, nil
}

func loadFile(path string, load func(io.Reader) ([]rtree.Circle, error)) ([]rtree.Circle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	circles, err := load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return circles, nil
}

func truncate(cs []rtree.Circle, n int) []rtree.Circle {
	if len(cs) > n {
		return cs[:n]
	}
	return cs
}

// Synthetic generates n circles at random coordinates, with radii between 0.5
// and 25 km.
func Synthetic(n int, src rand.Source) []rtree.Circle {
	radius := distuv.Uniform{Min: 0.5 / kmPerDegree, Max: 25 / kmPerDegree, Src: src}
	circles := make([]rtree.Circle, n)
	for i := range circles {
		circles[i] = rtree.Circle{
			X:      faker.Longitude(),
			Y:      faker.Latitude(),
			Radius: radius.Rand(),
		}
	}
	return circles
}

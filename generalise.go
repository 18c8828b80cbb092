package main

import (
	"fmt"
	"math"
)

// OutOfRange labels a numeric value outside every bin
const OutOfRange = "out-of-range"

// Unclassified labels a categorical value with no known generalisation
const Unclassified = "unclassified"

// Bins assigns a numeric value to one of a set of contiguous labelled
// ranges. With RightClosed each bin is (lo, hi] and the lowest bin also
// includes its lower edge; otherwise each bin is [lo, hi) and the
// highest bin also includes its upper edge.
type Bins struct {
	Edges       []float64
	Labels      []string
	RightClosed bool
}

// AgeBins are the age groups
var AgeBins = Bins{
	Edges:       []float64{18, 27, 37, 47, 57, 67},
	Labels:      []string{"18-27", "28-37", "38-47", "48-57", "58-67"},
	RightClosed: true,
}

// BMIBins are the bmi levels
var BMIBins = Bins{
	Edges:  []float64{0, 18.5, 24.9, 50},
	Labels: []string{"Underweight", "Healthy", "Overweight"},
}

// Label returns the label of the bin containing v, or OutOfRange
func (b Bins) Label(v float64) string {
	n := len(b.Labels)
	if math.IsNaN(v) || n == 0 || len(b.Edges) != n+1 {
		return OutOfRange
	}
	for i := 0; i < n; i++ {
		lo, hi := b.Edges[i], b.Edges[i+1]
		if b.RightClosed {
			if (v > lo || (i == 0 && v == lo)) && v <= hi {
				return b.Labels[i]
			}
			continue
		}
		if v >= lo && (v < hi || (i == n-1 && v == hi)) {
			return b.Labels[i]
		}
	}
	return OutOfRange
}

// educationGroups collapses the six raw education tiers into three
var educationGroups = map[string]string{
	"secondary": "pre-uni",
	"primary":   "pre-uni",
	"bachelor":  "bachelor",
	"other":     "bachelor",
	"masters":   "post-grad",
	"phD":       "post-grad",
}

// defaultContinentMerges reduce continent cardinality to raise
// k-anonymity at some cost to data utility
var defaultContinentMerges = map[string]string{
	"North America": "America",
	"South America": "America",
	"Antarctica":    "Europe",
}

// Generaliser maps derived records to their generalised categories
type Generaliser struct {
	continents ContinentTable
	aliases    map[string]string
	merges     map[string]string
}

// NewGeneraliser makes a Generaliser from a reference table, a country
// alias table applied before lookup, and continent merges applied after.
// If merges is empty defaultContinentMerges is used.
func NewGeneraliser(continents ContinentTable, aliases, merges map[string]string) (*Generaliser, error) {
	if len(continents) == 0 {
		return nil, &ConfigurationError{Context: "generaliser", Reason: "empty continent reference table"}
	}
	g := &Generaliser{
		continents: continents,
		aliases:    make(map[string]string, len(aliases)),
		merges:     merges,
	}
	for from, to := range aliases {
		if to == "" {
			return nil, &ConfigurationError{Context: "country_aliases", Column: from, Reason: "has an empty replacement"}
		}
		g.aliases[normaliseName(from)] = to
	}
	if len(g.merges) == 0 {
		g.merges = defaultContinentMerges
	}
	return g, nil
}

// Continent resolves a raw country of birth to its merged continent
func (g *Generaliser) Continent(country string) string {
	if alias, ok := g.aliases[normaliseName(country)]; ok {
		country = alias
	}
	continent, ok := g.continents.Continent(country)
	if !ok {
		return Unclassified
	}
	if merged, ok := g.merges[continent]; ok {
		return merged
	}
	return continent
}

// Education collapses a raw education level
func Education(level string) string {
	if group, ok := educationGroups[level]; ok {
		return group
	}
	return Unclassified
}

// Generalise adds the generalised categories to a derived record
func (g *Generaliser) Generalise(d DerivedRecord) GeneralisedRecord {
	return GeneralisedRecord{
		DerivedRecord:    d,
		AgeGroup:         AgeBins.Label(float64(d.Age)),
		BMILevel:         BMIBins.Label(d.BMI),
		ContinentOfBirth: g.Continent(d.CountryOfBirth),
		EducationGroup:   Education(d.EducationLevel),
	}
}

// String describes the bins, for logging
func (b Bins) String() string {
	return fmt.Sprintf("edges %v labels %v right-closed %t", b.Edges, b.Labels, b.RightClosed)
}

package main

import (
	"math"
	"testing"
)

func TestAgeBinsPartition(t *testing.T) {

	// every integer age in [18,67] lands in exactly one of the five
	// contiguous labels, in order
	want := map[string][2]int{
		"18-27": {18, 27},
		"28-37": {28, 37},
		"38-47": {38, 47},
		"48-57": {48, 57},
		"58-67": {58, 67},
	}
	seen := map[string]int{}
	prev := -1
	for age := 18; age <= 67; age++ {
		label := AgeBins.Label(float64(age))
		r, ok := want[label]
		if !ok {
			t.Fatalf("age %d got unexpected label %q", age, label)
		}
		if age < r[0] || age > r[1] {
			t.Errorf("age %d in %s outside [%d,%d]", age, label, r[0], r[1])
		}
		idx := indexOf(AgeBins.Labels, label)
		if idx < prev {
			t.Errorf("age %d label %s is out of order", age, label)
		}
		prev = idx
		seen[label]++
	}
	if len(seen) != 5 {
		t.Errorf("expected 5 labels, saw %d", len(seen))
	}
	for _, age := range []float64{-1, 0, 17, 17.9, 67.1, 68, 120, math.NaN()} {
		if got := AgeBins.Label(age); got != OutOfRange {
			t.Errorf("age %v should be out of range, got %s", age, got)
		}
	}
}

func TestBMIBins(t *testing.T) {

	tests := []struct {
		bmi  float64
		want string
	}{
		{0, "Underweight"},
		{18.4, "Underweight"},
		{18.5, "Healthy"},
		{24.8, "Healthy"},
		{24.9, "Overweight"},
		{49.99, "Overweight"},
		{50, "Overweight"},
		{50.01, OutOfRange},
		{-0.5, OutOfRange},
	}
	for _, tt := range tests {
		if got := BMIBins.Label(tt.bmi); got != tt.want {
			t.Errorf("bmi %v got %s want %s", tt.bmi, got, tt.want)
		}
	}

	// a computed bmi on the boundary behaves as the literal does
	if got := BMIBins.Label(BMI(2, 99.6)); got != "Overweight" {
		t.Errorf("computed bmi 24.9 should be Overweight, got %s", got)
	}
}

func TestBinsMisconfigured(t *testing.T) {
	b := Bins{Edges: []float64{0, 1}, Labels: []string{"a", "b"}}
	if got := b.Label(0.5); got != OutOfRange {
		t.Errorf("misconfigured bins should give out of range, got %s", got)
	}
}

func TestEducation(t *testing.T) {
	tests := map[string]string{
		"secondary": "pre-uni",
		"primary":   "pre-uni",
		"bachelor":  "bachelor",
		"other":     "bachelor",
		"masters":   "post-grad",
		"phD":       "post-grad",
		"PhD":       Unclassified,
		"":          Unclassified,
		"doctorate": Unclassified,
	}
	for in, want := range tests {
		if got := Education(in); got != want {
			t.Errorf("education %q got %s want %s", in, got, want)
		}
	}
}

func testGeneraliser(t *testing.T) *Generaliser {
	t.Helper()
	table, err := LoadContinentTable("")
	if err != nil {
		t.Fatal(err)
	}
	g, err := NewGeneraliser(table, map[string]string{
		"Korea":                 "South Korea",
		"Palestinian Territory": "Jordan",
		"Antarctica (the territory South of 60 deg S)": "Heard Island and McDonald Islands",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestContinent(t *testing.T) {

	g := testGeneraliser(t)

	tests := map[string]string{
		"Korea":                 "Asia",
		"South Korea":           "Asia",
		"Palestinian Territory": "Asia",
		"Canada":                "America",
		"Brazil":                "America",
		"United Kingdom":        "Europe",
		"  united   kingdom ":   "Europe",
		"Kenya":                 "Africa",
		"Fiji":                  "Oceania",
		"Atlantis":              Unclassified,
		"":                      Unclassified,

		"Antarctica (the territory South of 60 deg S)": "Europe",
	}
	for in, want := range tests {
		if got := g.Continent(in); got != want {
			t.Errorf("country %q got %s want %s", in, got, want)
		}
	}
}

func TestContinentCustomMerges(t *testing.T) {
	table := ContinentTable{"canada": "North America", "peru": "South America"}
	g, err := NewGeneraliser(table, nil, map[string]string{"South America": "Americas"})
	if err != nil {
		t.Fatal(err)
	}
	if got := g.Continent("Canada"); got != "North America" {
		t.Errorf("custom merges replace the defaults, got %s", got)
	}
	if got := g.Continent("Peru"); got != "Americas" {
		t.Errorf("Peru got %s", got)
	}
}

func TestNewGeneraliserFail(t *testing.T) {
	if _, err := NewGeneraliser(nil, nil, nil); err == nil {
		t.Error("empty reference table should fail")
	}
	table := ContinentTable{"peru": "South America"}
	if _, err := NewGeneraliser(table, map[string]string{"Korea": ""}, nil); err == nil {
		t.Error("empty alias should fail")
	}
}

func TestGeneralise(t *testing.T) {

	g := testGeneraliser(t)
	d := DerivedRecord{
		RawRecord: RawRecord{CountryOfBirth: "Korea", EducationLevel: "masters"},
		Age:       30,
		BMI:       18.5,
	}
	got := g.Generalise(d)
	if got.AgeGroup != "28-37" || got.BMILevel != "Healthy" ||
		got.ContinentOfBirth != "Asia" || got.EducationGroup != "post-grad" {
		t.Errorf("unexpected generalisation %+v", got)
	}
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

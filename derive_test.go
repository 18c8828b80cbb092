package main

import (
	"errors"
	"math"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestAge(t *testing.T) {

	now := date(2024, time.June, 15)

	tests := []struct {
		name   string
		birth  time.Time
		policy AgePolicy
		want   int
	}{
		{"legacy birthday today", date(1990, time.June, 15), AgeLegacy, 35},
		{"legacy later month earlier day", date(1990, time.March, 20), AgeLegacy, 34},
		{"legacy earlier month earlier day", date(1990, time.March, 10), AgeLegacy, 35},
		{"legacy later month", date(1990, time.July, 1), AgeLegacy, 34},
		{"completed birthday today", date(1990, time.June, 15), AgeCompletedYears, 34},
		{"completed birthday tomorrow", date(1990, time.June, 16), AgeCompletedYears, 33},
		{"completed birthday passed", date(1990, time.March, 20), AgeCompletedYears, 34},
	}

	for _, tt := range tests {
		got := Age(tt.birth, now, tt.policy)
		if got != tt.want {
			t.Errorf("%s: got age %d want %d", tt.name, got, tt.want)
		}
	}
}

func TestParseAgePolicy(t *testing.T) {
	for in, want := range map[string]AgePolicy{
		"":                AgeLegacy,
		"legacy":          AgeLegacy,
		"completed-years": AgeCompletedYears,
	} {
		got, err := ParseAgePolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseAgePolicy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseAgePolicy("lunar"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("unknown policy should be a configuration error, got %v", err)
	}
}

func TestBMI(t *testing.T) {

	tests := []struct {
		height, weight, want float64
	}{
		{1.80, 81, 25},
		{1.75, 70, 22.86},
		{1.62, 48.5, 18.48},
		{2.0, 100, 25},
		{1.5, 0.01, 0},
	}
	for _, tt := range tests {
		got := BMI(tt.height, tt.weight)
		if got != tt.want {
			t.Errorf("BMI(%v, %v) = %v want %v", tt.height, tt.weight, got, tt.want)
		}
		if got < 0 {
			t.Errorf("BMI(%v, %v) is negative", tt.height, tt.weight)
		}
		if got != math.Round(got*100)/100 {
			t.Errorf("BMI(%v, %v) = %v has more than 2 decimals", tt.height, tt.weight, got)
		}
	}
}

func TestDeriveRejects(t *testing.T) {

	d := Deriver{Now: date(2024, time.June, 15), Policy: AgeLegacy}
	good := RawRecord{LineNo: 2, Height: 1.7, Weight: 60, Birthdate: date(1980, time.January, 1)}

	tests := []struct {
		name  string
		mod   func(r *RawRecord)
		field string
	}{
		{"zero height", func(r *RawRecord) { r.Height = 0 }, colHeight},
		{"negative height", func(r *RawRecord) { r.Height = -1.7 }, colHeight},
		{"NaN height", func(r *RawRecord) { r.Height = math.NaN() }, colHeight},
		{"zero weight", func(r *RawRecord) { r.Weight = 0 }, colWeight},
		{"no birthdate", func(r *RawRecord) { r.Birthdate = time.Time{} }, colBirthdate},
		{"future birthdate", func(r *RawRecord) { r.Birthdate = date(2030, 1, 1) }, colBirthdate},
	}

	for _, tt := range tests {
		r := good
		tt.mod(&r)
		_, err := d.Derive(r)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%s: expected ValidationError, got %v", tt.name, err)
			continue
		}
		if ve.Field != tt.field || ve.LineNo != 2 {
			t.Errorf("%s: unexpected error detail %+v", tt.name, ve)
		}
		if !errors.Is(err, ErrValidation) {
			t.Errorf("%s: error should match ErrValidation", tt.name)
		}
	}

	dr, err := d.Derive(good)
	if err != nil {
		t.Fatalf("good record failed: %s", err)
	}
	if dr.Age != 45 || dr.BirthYear != 1980 || dr.BMI != 20.76 {
		t.Errorf("unexpected derived values %+v", dr)
	}
}

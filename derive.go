package main

import (
	"fmt"
	"math"
	"time"
)

// AgePolicy selects how age is counted from a birthdate
type AgePolicy string

const (
	// AgeLegacy adds a year to the calendar-year difference when both
	// the current month and current day are on or after the birth month
	// and day. A subject whose birthday is today is counted as having
	// had it. This matches the ages the bins were calibrated against.
	AgeLegacy AgePolicy = "legacy"
	// AgeCompletedYears is age in completed years
	AgeCompletedYears AgePolicy = "completed-years"
)

// ParseAgePolicy parses a settings value, defaulting to AgeLegacy
func ParseAgePolicy(s string) (AgePolicy, error) {
	switch AgePolicy(s) {
	case "", AgeLegacy:
		return AgeLegacy, nil
	case AgeCompletedYears:
		return AgeCompletedYears, nil
	}
	return "", &ConfigurationError{Context: "age_policy", Reason: fmt.Sprintf("unknown policy %q", s)}
}

// Age returns the age of someone born on birth at now
func Age(birth, now time.Time, policy AgePolicy) int {
	age := now.Year() - birth.Year()
	switch policy {
	case AgeCompletedYears:
		if now.Month() < birth.Month() ||
			(now.Month() == birth.Month() && now.Day() < birth.Day()) {
			age--
		}
	default:
		if now.Month() >= birth.Month() && now.Day() >= birth.Day() {
			age++
		}
	}
	return age
}

// BMI returns weight / height² rounded half-to-even to 2 decimal
// places. Height is in metres and weight in kilograms.
func BMI(height, weight float64) float64 {
	return math.RoundToEven(weight/(height*height)*100) / 100
}

// Deriver computes the derived attributes of raw records against a
// fixed evaluation time
type Deriver struct {
	Now    time.Time
	Policy AgePolicy
}

// Derive returns the DerivedRecord for r, or a ValidationError if r
// cannot produce a meaningful age or bmi
func (d Deriver) Derive(r RawRecord) (DerivedRecord, error) {
	if !(r.Height > 0) || math.IsInf(r.Height, 0) {
		return DerivedRecord{}, &ValidationError{r.LineNo, colHeight, "must be strictly positive"}
	}
	if !(r.Weight > 0) || math.IsInf(r.Weight, 0) {
		return DerivedRecord{}, &ValidationError{r.LineNo, colWeight, "must be strictly positive"}
	}
	if r.Birthdate.IsZero() {
		return DerivedRecord{}, &ValidationError{r.LineNo, colBirthdate, "missing"}
	}
	if r.Birthdate.After(d.Now) {
		return DerivedRecord{}, &ValidationError{r.LineNo, colBirthdate, "in the future"}
	}
	return DerivedRecord{
		RawRecord: r,
		Age:       Age(r.Birthdate, d.Now, d.Policy),
		BMI:       BMI(r.Height, r.Weight),
		BirthYear: r.Birthdate.Year(),
	}, nil
}

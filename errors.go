package main

import (
	"errors"
	"fmt"
)

// ErrValidation reports a malformed or impossible input value; the
// offending record is rejected and the run continues
var ErrValidation = errors.New("validation error")

// ErrCollision reports a duplicate pseudonym digest
var ErrCollision = errors.New("pseudonym collision")

// ErrConfiguration reports a settings problem, such as a consumer
// column or quasi-identifier that does not exist
var ErrConfiguration = errors.New("configuration error")

// ErrDecryption reports a wrong key or tampered ciphertext
var ErrDecryption = errors.New("decryption error")

// ValidationError describes why a single input record was rejected
type ValidationError struct {
	LineNo int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("line %d: invalid %s: %s", e.LineNo, e.Field, e.Reason)
}

// Is allows errors.Is(err, ErrValidation)
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// CollisionError reports two records producing the same hash. The
// lines are reported, never the identifiers.
type CollisionError struct {
	Hash      string
	LineNo    int
	FirstLine int
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("hash %s on line %d collides with line %d", e.Hash, e.LineNo, e.FirstLine)
}

// Is allows errors.Is(err, ErrCollision)
func (e *CollisionError) Is(target error) bool { return target == ErrCollision }

// ConfigurationError reports a setting that cannot be satisfied
type ConfigurationError struct {
	Context string // for example "consumer researchers"
	Column  string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("%s: %s", e.Context, e.Reason)
	}
	return fmt.Sprintf("%s: column %q %s", e.Context, e.Column, e.Reason)
}

// Is allows errors.Is(err, ErrConfiguration)
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// DecryptionError wraps the underlying AEAD failure for a file
type DecryptionError struct {
	Path string
	Err  error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("could not decrypt %s: %v", e.Path, e.Err)
}

func (e *DecryptionError) Unwrap() error { return e.Err }

// Is allows errors.Is(err, ErrDecryption)
func (e *DecryptionError) Is(target error) bool { return target == ErrDecryption }

// phaseError names the pipeline phase in which a fatal error occurred
func phaseError(phase string, err error) error {
	return fmt.Errorf("%s: %w", phase, err)
}

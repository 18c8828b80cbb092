package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// anonArgs are the arguments to Anonymise
type anonArgs struct {
	inputPath string      // input CSV file
	settings  Settings    // loaded settings
	secret    []byte      // pseudonym secret; there is no default
	now       time.Time   // evaluation time for ages; zero means time.Now
	log       *zap.Logger // nil means no logging
	salt      SaltSource  // nil means RandomSalt
}

// Result summarises a de-identification run
type Result struct {
	RunID      string
	Read       int // records read successfully from the input
	Rejected   int // records rejected with a ValidationError
	Released   int // records in each extract
	Reports    []KReport
	SecureFile string
	SecureDB   string
	KeyFile    string
	Extracts   []string
}

// Anonymise de-identifies the input file. Every table is built and
// every k-anonymity report computed before anything is written, so a
// fatal error leaves no partial output. Record-level validation
// failures are counted and the run continues; any other error aborts
// the run naming the failing phase.
func Anonymise(ctx context.Context, args anonArgs) (*Result, error) {
	log := args.log
	if log == nil {
		log = zap.NewNop()
	}
	now := args.now
	if now.IsZero() {
		now = time.Now()
	}
	settings := args.settings

	res := &Result{
		RunID:      uuid.NewString(),
		SecureFile: settings.path(settings.SecureFile),
		SecureDB:   settings.path(settings.SecureDB),
		KeyFile:    settings.path(settings.KeyFile),
	}
	log = log.With(zap.String("run_id", res.RunID))
	log.Info("starting run", zap.String("input", args.inputPath), zap.Stringer("settings", settings))

	// configure
	views, err := loadConsumers(settings)
	if err != nil {
		return nil, phaseError("configure", err)
	}
	policy, err := ParseAgePolicy(settings.AgePolicy)
	if err != nil {
		return nil, phaseError("configure", err)
	}
	continents, err := LoadContinentTable(settings.Reference)
	if err != nil {
		return nil, phaseError("configure", err)
	}
	generaliser, err := NewGeneraliser(continents, settings.CountryAliases, settings.ContinentMerges)
	if err != nil {
		return nil, phaseError("configure", err)
	}
	pseudonymiser, err := NewPseudonymiser(args.secret, res.RunID, args.salt)
	if err != nil {
		return nil, phaseError("configure", err)
	}
	log.Debug("generalisation bins", zap.Stringer("age_bins", AgeBins), zap.Stringer("bmi_bins", BMIBins))

	// load
	if err := ctx.Err(); err != nil {
		return nil, phaseError("load", err)
	}
	input, err := ReadRecordsFile(args.inputPath)
	if err != nil {
		return nil, phaseError("load", err)
	}
	res.Read = len(input.Records)
	reject := func(phase string, err error) {
		res.Rejected++
		log.Warn("record rejected", zap.String("phase", phase), zap.Error(err))
	}
	for _, err := range input.Rejected {
		reject("load", err)
	}
	log.Info("input loaded", zap.Int("records", res.Read), zap.Int("rejected", len(input.Rejected)),
		zap.Strings("extra_columns", input.ExtraColumns))

	// derive
	if err := ctx.Err(); err != nil {
		return nil, phaseError("derive", err)
	}
	deriver := Deriver{Now: now, Policy: policy}
	derived := make([]DerivedRecord, 0, len(input.Records))
	for _, r := range input.Records {
		d, err := deriver.Derive(r)
		if errors.Is(err, ErrValidation) {
			reject("derive", err)
			continue
		}
		if err != nil {
			return nil, phaseError("derive", err)
		}
		derived = append(derived, d)
	}

	// generalise
	if err := ctx.Err(); err != nil {
		return nil, phaseError("generalise", err)
	}
	generalised := make([]GeneralisedRecord, len(derived))
	unbinned := 0
	for i, d := range derived {
		generalised[i] = generaliser.Generalise(d)
		if isUnbinned(generalised[i]) {
			unbinned++
		}
	}
	if unbinned > 0 {
		log.Warn("records with unbinned categories", zap.Int("records", unbinned))
	}

	// pseudonymise
	if err := ctx.Err(); err != nil {
		return nil, phaseError("pseudonymise", err)
	}
	secure := make([]SecureRecord, 0, len(generalised))
	deidentified := make([]DeidentifiedRecord, 0, len(generalised))
	for _, g := range generalised {
		s, d, err := pseudonymiser.Pseudonymise(g)
		if errors.Is(err, ErrValidation) {
			reject("pseudonymise", err)
			continue
		}
		if err != nil {
			return nil, phaseError("pseudonymise", err)
		}
		secure = append(secure, s)
		deidentified = append(deidentified, d)
	}
	res.Released = len(deidentified)
	if res.Released == 0 {
		log.Warn("no records survived validation")
	}

	// verify
	if err := ctx.Err(); err != nil {
		return nil, phaseError("verify", err)
	}
	for _, v := range views {
		report, err := KAnonymity(v.Name, deidentified, v.QuasiIdentifiers)
		if err != nil {
			return nil, phaseError("verify", err)
		}
		res.Reports = append(res.Reports, report)
		log.Info("k-anonymity",
			zap.String("consumer", report.Consumer),
			zap.Strings("quasi_identifiers", report.QuasiIdentifiers),
			zap.Int("k", report.K),
			zap.Int("classes", report.Classes),
			zap.Float64("mean_class_size", report.MeanClassSize),
			zap.Float64("stddev_class_size", report.StdDevClassSize),
		)
	}

	// partition
	if err := ctx.Err(); err != nil {
		return nil, phaseError("partition", err)
	}
	schema := append(append([]string{}, deidentifiedColumns...), input.ExtraColumns...)
	extracts := make([][]byte, len(views))
	for i, v := range views {
		table, err := Partition(deidentified, schema, v)
		if err != nil {
			return nil, phaseError("partition", err)
		}
		var buf bytes.Buffer
		if err := table.WriteCSV(&buf); err != nil {
			return nil, phaseError("partition", err)
		}
		extracts[i] = buf.Bytes()
		log.Debug("extract partitioned", zap.String("consumer", v.Name), zap.Strings("columns", table.ColumnNames()))
	}
	secureTable, err := SecureTable(secure)
	if err != nil {
		return nil, phaseError("partition", err)
	}

	// write
	if err := ctx.Err(); err != nil {
		return nil, phaseError("write", err)
	}
	if err := os.MkdirAll(settings.OutputDir, 0o700); err != nil {
		return nil, phaseError("write", err)
	}
	if err := secureTable.WriteFile(res.SecureFile); err != nil {
		return nil, phaseError("write", err)
	}
	log.Info("secure dataset written", zap.String("file", res.SecureFile), zap.Int("records", len(secure)))
	if res.SecureDB != "" {
		stored, err := saveSecureStore(res.SecureDB, res.RunID, secure)
		if err != nil {
			return nil, phaseError("write", err)
		}
		log.Info("secure store updated", zap.String("file", res.SecureDB), zap.Int64("records", stored))
	}

	// encrypt
	if _, err := os.Stat(res.KeyFile); err == nil {
		log.Warn("replacing existing key file", zap.String("file", res.KeyFile))
	}
	if err := GenerateKeyFile(res.KeyFile); err != nil {
		return nil, phaseError("encrypt", err)
	}
	gatekeeper := Gatekeeper{KeyPath: res.KeyFile}
	for i, v := range views {
		if err := gatekeeper.WriteEncrypted(v.File, extracts[i]); err != nil {
			return nil, phaseError("encrypt", fmt.Errorf("consumer %s: %w", v.Name, err))
		}
		res.Extracts = append(res.Extracts, v.File)
		log.Info("extract written", zap.String("consumer", v.Name), zap.String("file", v.File),
			zap.Int("records", res.Released))
	}

	log.Info("run complete", zap.Int("released", res.Released), zap.Int("rejected", res.Rejected))
	return res, nil
}

// isUnbinned reports whether any generalised category fell outside its
// defined bins
func isUnbinned(g GeneralisedRecord) bool {
	for _, v := range []string{g.AgeGroup, g.BMILevel, g.ContinentOfBirth, g.EducationGroup} {
		if v == OutOfRange || v == Unclassified {
			return true
		}
	}
	return false
}

// saveSecureStore saves the run's secure records and returns the number
// the store holds for the run
func saveSecureStore(path, runID string, records []SecureRecord) (int64, error) {
	store, err := OpenSecureStore(path)
	if err != nil {
		return 0, err
	}
	n, err := saveAndCount(store, runID, records)
	if err != nil {
		store.Close()
		return 0, err
	}
	if n != int64(len(records)) {
		store.Close()
		return n, fmt.Errorf("secure store %s holds %d records for run %s, want %d", path, n, runID, len(records))
	}
	return n, store.Close()
}

func saveAndCount(store *SecureStore, runID string, records []SecureRecord) (int64, error) {
	if err := store.Save(records); err != nil {
		return 0, err
	}
	return store.CountRun(runID)
}

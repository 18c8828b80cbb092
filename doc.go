/*
go-deidentify

A tool for de-identifying a customer information CSV file before it is
shared with downstream consumers.

Each input row is enriched with an age and bmi, its quasi-identifiers
are generalised into coarse groups, and the row is split in two by a
salted keyed hash of the national insurance number:

  - the Secure Dataset keeps the direct identifiers needed to
    re-identify a subject, together with the salt, and never leaves the
    data controller

  - two consumer extracts, one for researchers and one for government,
    keep only generalised and behavioural columns keyed by the hash, and
    are encrypted at rest with a key written alongside them

The k-anonymity of each extract over its quasi-identifiers is computed
and reported before anything is written. k is reported, not enforced;
the operator decides whether it is acceptable before publishing.

Running the programme

	Usage:
	  go-deidentify : de-identify a customer information file.

	go-deidentify run -s <settings.toml> [--secret-file file] <input.csv>
	go-deidentify decrypt -k <filekey.key> [-o output | --in-place] <file>
	go-deidentify reidentify -s <settings.toml> [--verify] <hash>...

The pseudonym secret is read from --secret-file, or from the
DEIDENTIFY_SECRET environment variable. There is no default secret.

Rows with an unreadable or impossible height, weight or birthdate are
rejected and counted; the run continues. A hash collision, a missing
column or a bad setting stops the run before any output is written.

An example settings file

	output_dir = "out"
	key_file = "filekey.key"
	secure_file = "Secure Dataset.csv"
	secure_db = "secure.db"       # optional SQLite copy of the secure dataset
	reference = ""                # yaml continent table; empty for the built-in
	age_policy = "legacy"         # or "completed-years"
	log_level = "info"
	log_format = "console"        # or "json"

	[country_aliases]
	"Korea" = "South Korea"
	"Saint Helena" = "South Africa"

	[continent_merges]
	"North America" = "America"
	"South America" = "America"
	"Antarctica" = "Europe"

	[consumers.government]
	file = "Government Dataset.csv"
	columns = ["continent_of_birth", "education_level", "cc_status",
	           "bmi_level", "drinking_status_level", "smoking_status"]
	quasi_identifiers = ["bmi_level", "continent_of_birth", "education_level"]

Only the researchers and government consumers exist. Their columns may
be narrowed or re-ordered, but no identifying column may be released.
*/
package main

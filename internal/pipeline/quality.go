package pipeline

import (
	"fmt"

	"github.com/d-gambino/udacity-data-engineering-capstone/internal/config"
	"github.com/d-gambino/udacity-data-engineering-capstone/internal/dataframe"
	"github.com/d-gambino/udacity-data-engineering-capstone/internal/errors"
)

// Tables holds the finished star-schema frames.
type Tables struct {
	Fact         *dataframe.DataFrame
	Calendar     *dataframe.DataFrame
	Country      *dataframe.DataFrame
	Airport      *dataframe.DataFrame
	Demographics *dataframe.DataFrame
}

// Release releases all table frames.
func (t *Tables) Release() {
	for _, df := range []*dataframe.DataFrame{t.Fact, t.Calendar, t.Country, t.Airport, t.Demographics} {
		if df != nil {
			df.Release()
		}
	}
}

func (t *Tables) byName() []struct {
	name string
	df   *dataframe.DataFrame
} {
	return []struct {
		name string
		df   *dataframe.DataFrame
	}{
		{"immigration_fact", t.Fact},
		{"calendar_dim", t.Calendar},
		{"country_dim", t.Country},
		{"us_airport_dim", t.Airport},
		{"us_demographics_dim", t.Demographics},
	}
}

// CheckResult records the outcome of one data quality check.
type CheckResult struct {
	Table  string
	Check  string
	Passed bool
	Detail string
}

// QualityReport aggregates the check results of a run.
type QualityReport struct {
	Results []CheckResult
}

// Failed returns the checks that did not pass.
func (r *QualityReport) Failed() []CheckResult {
	var failed []CheckResult
	for _, result := range r.Results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}

// Err returns a quality error summarizing the failed checks, or nil.
func (r *QualityReport) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	first := failed[0]
	return errors.NewQualityError(first.Table,
		fmt.Sprintf("%d check(s) failed, first: %s (%s)", len(failed), first.Check, first.Detail))
}

func (r *QualityReport) add(table, check string, passed bool, detail string) {
	r.Results = append(r.Results, CheckResult{Table: table, Check: check, Passed: passed, Detail: detail})
}

// uniqueKeyColumns are the key columns that must be unique per table
// after aggregation.
var uniqueKeyColumns = map[string]string{
	"immigration_fact":    "record_id",
	"calendar_dim":        "date",
	"country_dim":         "country_id",
	"us_airport_dim":      "airport_id",
	"us_demographics_dim": "state_id",
}

// factKeyColumns are the fact's dimension keys whose null ratio is
// bounded by configuration.
var factKeyColumns = []string{"birth_country_id", "res_country_id", "airport_id", "state_id"}

// RunQualityChecks validates the finished tables: non-emptiness, key
// uniqueness, the minimum fact row count and the per-dimension null-key
// ratio cap.
func RunQualityChecks(tables *Tables, cfg config.QualityConfig) *QualityReport {
	report := &QualityReport{}

	for _, entry := range tables.byName() {
		if entry.df == nil || entry.df.Len() == 0 {
			report.add(entry.name, "non_empty", false, "table has no rows")
			continue
		}
		report.add(entry.name, "non_empty", true, fmt.Sprintf("%d rows", entry.df.Len()))

		keyName := uniqueKeyColumns[entry.name]
		col, exists := entry.df.Column(keyName)
		if !exists {
			report.add(entry.name, "unique_key", false,
				fmt.Sprintf("key column %q is missing", keyName))
			continue
		}
		if nulls := col.NullCount(); nulls > 0 {
			report.add(entry.name, "unique_key", false,
				fmt.Sprintf("key column %q has %d null(s)", keyName, nulls))
			continue
		}
		distinct, err := entry.df.Distinct(keyName)
		if err != nil {
			report.add(entry.name, "unique_key", false, err.Error())
			continue
		}
		duplicates := entry.df.Len() - distinct.Len()
		distinct.Release()
		report.add(entry.name, "unique_key", duplicates == 0,
			fmt.Sprintf("%d duplicate key(s) in %q", duplicates, keyName))
	}

	if tables.Fact != nil {
		factRows := tables.Fact.Len()
		report.add("immigration_fact", "min_rows", factRows >= cfg.MinFactRows,
			fmt.Sprintf("%d rows, minimum %d", factRows, cfg.MinFactRows))

		for _, keyName := range factKeyColumns {
			col, exists := tables.Fact.Column(keyName)
			if !exists {
				report.add("immigration_fact", "null_ratio_"+keyName, false, "column missing")
				continue
			}
			ratio := 0.0
			if factRows > 0 {
				ratio = float64(col.NullCount()) / float64(factRows)
			}
			report.add("immigration_fact", "null_ratio_"+keyName, ratio <= cfg.MaxNullKeyRatio,
				fmt.Sprintf("%.4f null ratio, cap %.4f", ratio, cfg.MaxNullKeyRatio))
		}
	}

	return report
}

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d-gambino/udacity-data-engineering-capstone/internal/config"
	"github.com/d-gambino/udacity-data-engineering-capstone/internal/testutil"
)

func healthyTables(t *testing.T) *Tables {
	t.Helper()
	return &Tables{
		Fact: testutil.Frame(t,
			testutil.Series(t, "record_id", []int64{1, 2}),
			testutil.Series(t, "birth_country_id", []int64{1, 1}),
			testutil.SeriesWithNulls(t, "res_country_id", []int64{1, 0}, []bool{true, false}),
			testutil.Series(t, "airport_id", []int64{10, 10}),
			testutil.Series(t, "state_id", []int64{7, 7}),
		),
		Calendar: testutil.Frame(t,
			testutil.Series(t, "date", []string{"2016-04-01", "2016-04-02"})),
		Country: testutil.Frame(t,
			testutil.Series(t, "country_id", []int64{1})),
		Airport: testutil.Frame(t,
			testutil.Series(t, "airport_id", []int64{10})),
		Demographics: testutil.Frame(t,
			testutil.Series(t, "state_id", []int64{7})),
	}
}

func qualityConfig() config.QualityConfig {
	return config.QualityConfig{MinFactRows: 1, MaxNullKeyRatio: 0.95}
}

func TestRunQualityChecksAllPass(t *testing.T) {
	tables := healthyTables(t)
	defer tables.Release()

	report := RunQualityChecks(tables, qualityConfig())

	assert.Empty(t, report.Failed())
	assert.NoError(t, report.Err())
	// 5 tables x (non_empty + unique_key) + min_rows + 4 null ratios
	assert.Len(t, report.Results, 15)
}

func TestRunQualityChecksEmptyTable(t *testing.T) {
	tables := healthyTables(t)
	defer tables.Release()
	tables.Calendar.Release()
	tables.Calendar = testutil.Frame(t)

	report := RunQualityChecks(tables, qualityConfig())

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "calendar_dim", failed[0].Table)
	assert.Equal(t, "non_empty", failed[0].Check)
	assert.Error(t, report.Err())
}

func TestRunQualityChecksDuplicateKey(t *testing.T) {
	tables := healthyTables(t)
	defer tables.Release()
	tables.Country.Release()
	tables.Country = testutil.Frame(t,
		testutil.Series(t, "country_id", []int64{1, 1}))

	report := RunQualityChecks(tables, qualityConfig())

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "country_dim", failed[0].Table)
	assert.Equal(t, "unique_key", failed[0].Check)
	assert.Contains(t, failed[0].Detail, "1 duplicate key(s)")
}

func TestRunQualityChecksNullKeyInDimension(t *testing.T) {
	tables := healthyTables(t)
	defer tables.Release()
	tables.Airport.Release()
	tables.Airport = testutil.Frame(t,
		testutil.SeriesWithNulls(t, "airport_id", []int64{10, 0}, []bool{true, false}))

	report := RunQualityChecks(tables, qualityConfig())

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "us_airport_dim", failed[0].Table)
	assert.Equal(t, "unique_key", failed[0].Check)
}

func TestRunQualityChecksMinRows(t *testing.T) {
	tables := healthyTables(t)
	defer tables.Release()

	cfg := qualityConfig()
	cfg.MinFactRows = 1000
	report := RunQualityChecks(tables, cfg)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "min_rows", failed[0].Check)
}

func TestRunQualityChecksNullKeyRatioCap(t *testing.T) {
	tables := healthyTables(t)
	defer tables.Release()

	cfg := qualityConfig()
	cfg.MaxNullKeyRatio = 0.25 // res_country_id is half null
	report := RunQualityChecks(tables, cfg)

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "null_ratio_res_country_id", failed[0].Check)
	assert.Error(t, report.Err())
}

func TestQualityReportErrSummarizesFirstFailure(t *testing.T) {
	report := &QualityReport{}
	report.add("immigration_fact", "min_rows", false, "0 rows, minimum 1")
	report.add("calendar_dim", "non_empty", false, "table has no rows")

	err := report.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 check(s) failed")
	assert.Contains(t, err.Error(), "min_rows")
}

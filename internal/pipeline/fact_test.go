package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d-gambino/udacity-data-engineering-capstone/internal/dataframe"
	etlerrors "github.com/d-gambino/udacity-data-engineering-capstone/internal/errors"
	"github.com/d-gambino/udacity-data-engineering-capstone/internal/testutil"
)

// cleanedImmigrationFixture is a minimal frame shaped like the output of
// DecodeLabels followed by CleanImmigration.
func cleanedImmigrationFixture(t *testing.T) *dataframe.DataFrame {
	t.Helper()
	return testutil.Frame(t,
		testutil.Series(t, "cicid", []int64{1, 2}),
		testutil.Series(t, "arrdate", []string{"2016-04-01", "2016-04-02"}),
		testutil.SeriesWithNulls(t, "depdate", []string{"2016-04-06", ""}, []bool{true, false}),
		testutil.Series(t, "dtadfile", []string{"20160401", "20160402"}),
		testutil.Series(t, "dtaddto", []string{"09302016", "09302016"}),
		testutil.Series(t, "i94visa", []int64{2, 1}),
		testutil.Series(t, "i94visa_value", []string{"Pleasure", "Business"}),
		testutil.SeriesWithNulls(t, "visapost", []string{"TIA", ""}, []bool{true, false}),
		testutil.Series(t, "i94mode", []int64{1, 1}),
		testutil.Series(t, "i94mode_value", []string{"Air", "Air"}),
		testutil.Series(t, "i94bir", []int64{34, 28}),
		testutil.Series(t, "entdepa", []string{"G", "G"}),
		testutil.SeriesWithNulls(t, "entdepd", []string{"O", ""}, []bool{true, false}),
		testutil.SeriesWithNulls(t, "matflag", []string{"M", ""}, []bool{true, false}),
		testutil.Series(t, "biryear", []float64{1982, 1988}),
		testutil.Series(t, "admnum", []float64{667643185, 917943185}),
		testutil.Series(t, "fltno", []string{"00296", "00199"}),
		testutil.Series(t, "airline", []string{"AZ", "DL"}),
		testutil.SeriesWithNulls(t, "i94cit_value", []string{"ALBANIA", "ATLANTIS"}, []bool{true, true}),
		testutil.Series(t, "i94res_value", []string{"MEXICO", "ALBANIA"}),
		testutil.Series(t, "i94port", []string{"JFK", "XXX"}),
		testutil.SeriesWithNulls(t, "i94addr", []string{"NY", ""}, []bool{true, false}),
	)
}

func factDimensions(t *testing.T) (country, airport, demographics *dataframe.DataFrame) {
	t.Helper()
	country = testutil.Frame(t,
		testutil.Series(t, "country_id", []int64{1, 2}),
		testutil.Series(t, "country_name", []string{"Albania", "Mexico"}),
	)
	airport = testutil.Frame(t,
		testutil.Series(t, "airport_id", []int64{10}),
		testutil.Series(t, "airport_code", []string{"JFK"}),
	)
	demographics = testutil.Frame(t,
		testutil.Series(t, "state_id", []int64{7}),
		testutil.Series(t, "state_code", []string{"NY"}),
	)
	return country, airport, demographics
}

func TestBuildFact(t *testing.T) {
	immigration := cleanedImmigrationFixture(t)
	defer immigration.Release()
	country, airport, demographics := factDimensions(t)
	defer country.Release()
	defer airport.Release()
	defer demographics.Release()

	out, err := BuildFact(immigration, country, airport, demographics)
	require.NoError(t, err)

	assert.Equal(t, 2, out.Len())
	assert.Equal(t, []string{
		"record_id", "birth_country_id", "res_country_id", "airport_id", "state_id",
		"arrival_date", "departure_date", "created_date", "admission_date",
		"visa_type_code", "visa_type_desc", "visa_post",
		"arrival_mode_code", "arrival_mode_desc", "age",
		"arrival_flag", "departure_flag", "match_flag",
		"birth_year", "admission_num", "flight_num", "airline_code",
	}, out.Columns())

	assert.Equal(t, []string{"1", "2"}, testutil.ColumnStrings(t, out, "record_id"))

	// Row 1 resolves every dimension; the country join folds case
	assert.Equal(t, "1", testutil.ColumnStrings(t, out, "birth_country_id")[0])
	assert.Equal(t, "2", testutil.ColumnStrings(t, out, "res_country_id")[0])
	assert.Equal(t, "10", testutil.ColumnStrings(t, out, "airport_id")[0])
	assert.Equal(t, "7", testutil.ColumnStrings(t, out, "state_id")[0])

	// Row 2 misses every dimension but is kept with null keys
	birth, _ := out.Column("birth_country_id")
	assert.True(t, birth.IsNull(1))
	airportKey, _ := out.Column("airport_id")
	assert.True(t, airportKey.IsNull(1))
	stateKey, _ := out.Column("state_id")
	assert.True(t, stateKey.IsNull(1))
	res, _ := out.Column("res_country_id")
	assert.Equal(t, "1", res.GetAsString(1), "residence resolves through its own code")

	// Measures carried through the joins
	assert.Equal(t, []string{"2016-04-01", "2016-04-02"},
		testutil.ColumnStrings(t, out, "arrival_date"))
	assert.Equal(t, []string{"Pleasure", "Business"},
		testutil.ColumnStrings(t, out, "visa_type_desc"))
	assert.Equal(t, []string{"AZ", "DL"}, testutil.ColumnStrings(t, out, "airline_code"))

	// Join helper columns do not leak into the fact table
	assert.False(t, out.HasColumn("country_name"))
	assert.False(t, out.HasColumn("airport_code"))
	assert.False(t, out.HasColumn("state_code"))
	assert.False(t, out.HasColumn("i94cit_value"))
}

func TestBuildFactEmptyImmigration(t *testing.T) {
	immigration := testutil.Frame(t)
	defer immigration.Release()
	country, airport, demographics := factDimensions(t)
	defer country.Release()
	defer airport.Release()
	defer demographics.Release()

	_, err := BuildFact(immigration, country, airport, demographics)
	require.Error(t, err)
	assert.ErrorIs(t, err, etlerrors.ErrEmptyFrame)
}

func TestBuildFactMissingColumn(t *testing.T) {
	immigration := testutil.Frame(t, testutil.Series(t, "cicid", []int64{1}))
	defer immigration.Release()
	country, airport, demographics := factDimensions(t)
	defer country.Release()
	defer airport.Release()
	defer demographics.Release()

	_, err := BuildFact(immigration, country, airport, demographics)
	assert.Error(t, err)
}

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d-gambino/udacity-data-engineering-capstone/internal/testutil"
)

func TestBuildCalendarDim(t *testing.T) {
	immigration := testutil.Frame(t,
		testutil.SeriesWithNulls(t, "arrdate",
			[]string{"2016-04-03", "2016-04-01", "2016-04-03", ""},
			[]bool{true, true, true, false}),
	)
	defer immigration.Release()

	out, err := BuildCalendarDim(immigration)
	require.NoError(t, err)

	assert.Equal(t, []string{"date", "year", "month", "week", "day", "weekday"}, out.Columns())
	assert.Equal(t, []string{"2016-04-01", "2016-04-03"},
		testutil.ColumnStrings(t, out, "date"), "distinct, sorted, nulls dropped")
	assert.Equal(t, []string{"2016", "2016"}, testutil.ColumnStrings(t, out, "year"))
	assert.Equal(t, []string{"4", "4"}, testutil.ColumnStrings(t, out, "month"))
	// 2016-04-01 is a Friday (weekday 6 with Sunday=1), in ISO week 13
	assert.Equal(t, []string{"13", "13"}, testutil.ColumnStrings(t, out, "week"))
	assert.Equal(t, []string{"92", "94"}, testutil.ColumnStrings(t, out, "day"))
	assert.Equal(t, []string{"6", "1"}, testutil.ColumnStrings(t, out, "weekday"))
}

func TestBuildCountryDim(t *testing.T) {
	temperature := testutil.Frame(t,
		testutil.Series(t, "Country", []string{"Mexico", "Albania", "Mexico"}),
		testutil.Series(t, "AverageTemperature", []float64{28.2, 15.5, 12.1}),
	)
	defer temperature.Release()

	out, err := BuildCountryDim(temperature)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"country_id", "country_name", "country_avg_temp_min", "country_avg_temp_max",
	}, out.Columns())
	assert.Equal(t, []string{"1", "2"}, testutil.ColumnStrings(t, out, "country_id"))
	assert.Equal(t, []string{"Albania", "Mexico"}, testutil.ColumnStrings(t, out, "country_name"))
	assert.Equal(t, []string{"15.5", "12.1"}, testutil.ColumnStrings(t, out, "country_avg_temp_min"))
	assert.Equal(t, []string{"15.5", "28.2"}, testutil.ColumnStrings(t, out, "country_avg_temp_max"))
}

func TestBuildAirportDim(t *testing.T) {
	airports := testutil.Frame(t,
		testutil.Series(t, "iata_code", []string{"LAX", "JFK"}),
		testutil.Series(t, "type", []string{"large_airport", "large_airport"}),
		testutil.Series(t, "name", []string{"Los Angeles Intl", "John F Kennedy Intl"}),
		testutil.Series(t, "continent", []string{"NA", "NA"}),
		testutil.Series(t, "iso_country", []string{"US", "US"}),
		testutil.SeriesWithNulls(t, "iso_region", []string{"US-CA", ""}, []bool{true, false}),
		testutil.Series(t, "municipality", []string{"Los Angeles", "New York"}),
	)
	defer airports.Release()

	out, err := BuildAirportDim(airports)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"airport_id", "airport_code", "airport_type", "airport_name",
		"continent_code", "continent_name", "country_code", "state_code",
		"municipality",
	}, out.Columns())

	// Sorted by airport code, ids assigned in that order
	assert.Equal(t, []string{"JFK", "LAX"}, testutil.ColumnStrings(t, out, "airport_code"))
	assert.Equal(t, []string{"1", "2"}, testutil.ColumnStrings(t, out, "airport_id"))
	assert.Equal(t, []string{"North America", "North America"},
		testutil.ColumnStrings(t, out, "continent_name"))

	state, ok := out.Column("state_code")
	require.True(t, ok)
	assert.True(t, state.IsNull(0), "missing region leaves state null")
	assert.Equal(t, "CA", state.GetAsString(1))
}

func TestBuildDemographicsDim(t *testing.T) {
	demographics := testutil.Frame(t,
		testutil.Series(t, "State Code", []string{"NY", "CA", "NY"}),
		testutil.Series(t, "State", []string{"New York", "California", "New York"}),
		testutil.Series(t, "Median Age", []float64{36.6, 34.2, 31.1}),
		testutil.Series(t, "Total Population", []int64{8000000, 3900000, 250000}),
		testutil.Series(t, "Number of Veterans", []int64{200000, 90000, 12000}),
		testutil.Series(t, "Foreign-born", []int64{3000000, 1500000, 30000}),
		testutil.Series(t, "Average Household Size", []float64{2.6, 2.8, 2.2}),
		testutil.Series(t, "Count", []int64{4000000, 1900000, 120000}),
	)
	defer demographics.Release()

	out, err := BuildDemographicsDim(demographics)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"state_id", "state_code", "state_name", "median_age_range",
		"population", "veteran_pop", "foreign_born_pop",
		"avg_household_size_range", "count",
	}, out.Columns())

	assert.Equal(t, []string{"1", "2"}, testutil.ColumnStrings(t, out, "state_id"))
	assert.Equal(t, []string{"CA", "NY"}, testutil.ColumnStrings(t, out, "state_code"))
	assert.Equal(t, []string{"California", "New York"}, testutil.ColumnStrings(t, out, "state_name"))
	assert.Equal(t, []string{"3900000", "8250000"}, testutil.ColumnStrings(t, out, "population"))
	assert.Equal(t, []string{"34.2 - 34.2", "31.1 - 36.6"},
		testutil.ColumnStrings(t, out, "median_age_range"))
	assert.Equal(t, []string{"2.8 - 2.8", "2.2 - 2.6"},
		testutil.ColumnStrings(t, out, "avg_household_size_range"))
}

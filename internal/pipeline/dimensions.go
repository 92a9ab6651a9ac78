package pipeline

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/d-gambino/udacity-data-engineering-capstone/internal/dataframe"
	"github.com/d-gambino/udacity-data-engineering-capstone/internal/series"
)

// continentNames expands the two-letter continent codes of the airport
// source.
var continentNames = map[string]string{
	"NA": "North America",
	"AF": "Africa",
	"AN": "Antarctica",
	"AS": "Asia",
	"EU": "Europe",
	"OC": "Oceania",
	"SA": "South America",
}

// BuildCalendarDim derives the calendar dimension from the distinct
// arrival dates of the cleaned immigration frame: date, year, month, ISO
// week, day of year and weekday (1=Sunday through 7=Saturday).
func BuildCalendarDim(immigration *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	dates, err := immigration.Select("arrdate")
	if err != nil {
		return nil, fmt.Errorf("calendar dimension: %w", err)
	}
	dates, err = dates.DropNull("arrdate")
	if err != nil {
		return nil, fmt.Errorf("calendar dimension: %w", err)
	}
	dates, err = dates.Distinct("arrdate")
	if err != nil {
		return nil, fmt.Errorf("calendar dimension: %w", err)
	}
	dates, err = dates.Rename("arrdate", "date")
	if err != nil {
		return nil, fmt.Errorf("calendar dimension: %w", err)
	}
	dates, err = dates.Sort("date", true)
	if err != nil {
		return nil, fmt.Errorf("calendar dimension: %w", err)
	}

	col, _ := dates.Column("date")
	dateCol, ok := col.(*series.Series[string])
	if !ok {
		return nil, fmt.Errorf("calendar dimension: date column is %T, want string", col)
	}

	n := dateCol.Len()
	years := make([]int64, n)
	months := make([]int64, n)
	weeks := make([]int64, n)
	days := make([]int64, n)
	weekdays := make([]int64, n)
	valid := make([]bool, n)

	for i := range n {
		if dateCol.IsNull(i) {
			continue
		}
		parsed, err := time.Parse("2006-01-02", dateCol.Value(i))
		if err != nil {
			continue // unparsable dates stay null across the derived columns
		}
		_, week := parsed.ISOWeek()
		years[i] = int64(parsed.Year())
		months[i] = int64(parsed.Month())
		weeks[i] = int64(week)
		days[i] = int64(parsed.YearDay())
		weekdays[i] = int64(parsed.Weekday()) + 1
		valid[i] = true
	}

	mem := memory.NewGoAllocator()
	result := dates
	for _, derived := range []struct {
		name   string
		values []int64
	}{
		{"year", years},
		{"month", months},
		{"week", weeks},
		{"day", days},
		{"weekday", weekdays},
	} {
		s, err := series.NewWithValidity(derived.name, derived.values, valid, mem)
		if err != nil {
			return nil, fmt.Errorf("calendar dimension: %w", err)
		}
		result, err = result.WithColumn(s)
		if err != nil {
			return nil, fmt.Errorf("calendar dimension: %w", err)
		}
	}

	return result, nil
}

// BuildCountryDim aggregates the cleaned temperature frame to one row per
// country with the lowest and highest of its recorded average
// temperatures, keyed by a 1-based surrogate id over the sorted names.
func BuildCountryDim(temperature *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	grouped, err := temperature.GroupBy("Country").Agg(
		dataframe.Min("AverageTemperature").As("country_avg_temp_min"),
		dataframe.Max("AverageTemperature").As("country_avg_temp_max"),
	)
	if err != nil {
		return nil, fmt.Errorf("country dimension: %w", err)
	}

	grouped, err = grouped.Rename("Country", "country_name")
	if err != nil {
		return nil, fmt.Errorf("country dimension: %w", err)
	}
	grouped, err = grouped.Sort("country_name", true)
	if err != nil {
		return nil, fmt.Errorf("country dimension: %w", err)
	}
	grouped, err = withRowNumber(grouped, "country_id")
	if err != nil {
		return nil, fmt.Errorf("country dimension: %w", err)
	}

	result, err := grouped.Select(
		"country_id", "country_name", "country_avg_temp_min", "country_avg_temp_max",
	)
	if err != nil {
		return nil, fmt.Errorf("country dimension: %w", err)
	}
	return result, nil
}

// BuildAirportDim shapes the US airport frame into the airport dimension,
// expanding continent codes and deriving the state code from the ISO
// region.
func BuildAirportDim(airports *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	df := airports

	for _, rename := range [][2]string{
		{"iata_code", "airport_code"},
		{"type", "airport_type"},
		{"name", "airport_name"},
		{"continent", "continent_code"},
		{"iso_country", "country_code"},
	} {
		var err error
		df, err = df.Rename(rename[0], rename[1])
		if err != nil {
			return nil, fmt.Errorf("airport dimension: %w", err)
		}
	}

	continentCol, _ := df.Column("continent_code")
	continentName, err := mapColumn(continentCol, "continent_name", continentNames)
	if err != nil {
		return nil, fmt.Errorf("airport dimension: %w", err)
	}
	df, err = df.WithColumn(continentName)
	if err != nil {
		return nil, fmt.Errorf("airport dimension: %w", err)
	}

	regionCol, exists := df.Column("iso_region")
	if !exists {
		return nil, fmt.Errorf("airport dimension: column %q missing from airport data", "iso_region")
	}
	stateCode, err := stateCodeColumn(regionCol)
	if err != nil {
		return nil, fmt.Errorf("airport dimension: %w", err)
	}
	df, err = df.WithColumn(stateCode)
	if err != nil {
		return nil, fmt.Errorf("airport dimension: %w", err)
	}

	df, err = df.Sort("airport_code", true)
	if err != nil {
		return nil, fmt.Errorf("airport dimension: %w", err)
	}
	df, err = withRowNumber(df, "airport_id")
	if err != nil {
		return nil, fmt.Errorf("airport dimension: %w", err)
	}

	result, err := df.Select(
		"airport_id", "airport_code", "airport_type", "airport_name",
		"continent_code", "continent_name", "country_code", "state_code",
		"municipality",
	)
	if err != nil {
		return nil, fmt.Errorf("airport dimension: %w", err)
	}
	return result, nil
}

// BuildDemographicsDim rolls the city-level demographic rows up to one
// row per US state, keyed by a 1-based surrogate id over the sorted state
// codes. Age and household size are carried as min-max range strings, the
// population measures as sums.
func BuildDemographicsDim(demographics *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	grouped, err := demographics.GroupBy("State Code", "State").Agg(
		dataframe.Min("Median Age").As("median_age_min"),
		dataframe.Max("Median Age").As("median_age_max"),
		dataframe.Sum("Total Population").As("population"),
		dataframe.Sum("Number of Veterans").As("veteran_pop"),
		dataframe.Sum("Foreign-born").As("foreign_born_pop"),
		dataframe.Min("Average Household Size").As("household_size_min"),
		dataframe.Max("Average Household Size").As("household_size_max"),
		dataframe.Sum("Count").As("count"),
	)
	if err != nil {
		return nil, fmt.Errorf("demographics dimension: %w", err)
	}

	grouped, err = grouped.Rename("State Code", "state_code")
	if err != nil {
		return nil, fmt.Errorf("demographics dimension: %w", err)
	}
	grouped, err = grouped.Rename("State", "state_name")
	if err != nil {
		return nil, fmt.Errorf("demographics dimension: %w", err)
	}

	for _, rng := range []struct{ minCol, maxCol, out string }{
		{"median_age_min", "median_age_max", "median_age_range"},
		{"household_size_min", "household_size_max", "avg_household_size_range"},
	} {
		col, err := rangeColumn(grouped, rng.minCol, rng.maxCol, rng.out)
		if err != nil {
			return nil, fmt.Errorf("demographics dimension: %w", err)
		}
		grouped, err = grouped.WithColumn(col)
		if err != nil {
			return nil, fmt.Errorf("demographics dimension: %w", err)
		}
	}

	grouped, err = grouped.Sort("state_code", true)
	if err != nil {
		return nil, fmt.Errorf("demographics dimension: %w", err)
	}
	grouped, err = withRowNumber(grouped, "state_id")
	if err != nil {
		return nil, fmt.Errorf("demographics dimension: %w", err)
	}

	result, err := grouped.Select(
		"state_id", "state_code", "state_name", "median_age_range",
		"population", "veteran_pop", "foreign_born_pop",
		"avg_household_size_range", "count",
	)
	if err != nil {
		return nil, fmt.Errorf("demographics dimension: %w", err)
	}
	return result, nil
}

// withRowNumber adds a 1-based int64 surrogate key column in current row
// order.
func withRowNumber(df *dataframe.DataFrame, name string) (*dataframe.DataFrame, error) {
	ids := make([]int64, df.Len())
	for i := range ids {
		ids[i] = int64(i) + 1
	}
	s, err := series.NewWithValidity(name, ids, nil, memory.NewGoAllocator())
	if err != nil {
		return nil, err
	}
	return df.WithColumn(s)
}

// rangeColumn renders two numeric columns as a "min - max" string column.
// Either side being null makes the row null.
func rangeColumn(df *dataframe.DataFrame, minName, maxName, outName string) (dataframe.ISeries, error) {
	minCol, exists := df.Column(minName)
	if !exists {
		return nil, fmt.Errorf("column %q not found", minName)
	}
	maxCol, exists := df.Column(maxName)
	if !exists {
		return nil, fmt.Errorf("column %q not found", maxName)
	}

	values := make([]string, df.Len())
	valid := make([]bool, df.Len())
	for i := range df.Len() {
		if minCol.IsNull(i) || maxCol.IsNull(i) {
			continue
		}
		values[i] = minCol.GetAsString(i) + " - " + maxCol.GetAsString(i)
		valid[i] = true
	}

	return series.NewWithValidity(outName, values, valid, memory.NewGoAllocator())
}

// stateCodeColumn derives the two-letter state code from ISO region
// values of the form "US-NY".
func stateCodeColumn(region dataframe.ISeries) (dataframe.ISeries, error) {
	values := make([]string, region.Len())
	valid := make([]bool, region.Len())
	for i := range region.Len() {
		if region.IsNull(i) {
			continue
		}
		v := region.GetAsString(i)
		if len(v) < 2 {
			continue
		}
		values[i] = v[len(v)-2:]
		valid[i] = true
	}
	return series.NewWithValidity("state_code", values, valid, memory.NewGoAllocator())
}

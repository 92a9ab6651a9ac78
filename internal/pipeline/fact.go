package pipeline

import (
	"fmt"

	"github.com/d-gambino/udacity-data-engineering-capstone/internal/dataframe"
	"github.com/d-gambino/udacity-data-engineering-capstone/internal/errors"
)

// factColumns maps the staged I-94 column names to their fact table
// names, in output order after the dimension keys.
var factColumns = [][2]string{
	{"arrdate", "arrival_date"},
	{"depdate", "departure_date"},
	{"dtadfile", "created_date"},
	{"dtaddto", "admission_date"},
	{"i94visa", "visa_type_code"},
	{"i94visa_value", "visa_type_desc"},
	{"visapost", "visa_post"},
	{"i94mode", "arrival_mode_code"},
	{"i94mode_value", "arrival_mode_desc"},
	{"i94bir", "age"},
	{"entdepa", "arrival_flag"},
	{"entdepd", "departure_flag"},
	{"matflag", "match_flag"},
	{"biryear", "birth_year"},
	{"admnum", "admission_num"},
	{"fltno", "flight_num"},
	{"airline", "airline_code"},
}

// BuildFact joins the dimension keys onto the cleaned immigration frame
// and shapes the result into the fact table. All joins are left joins, so
// admissions that cannot be resolved against a dimension keep a null key
// instead of being dropped; the quality stage reports the ratio.
func BuildFact(
	immigration, countryDim, airportDim, demographicsDim *dataframe.DataFrame,
) (*dataframe.DataFrame, error) {
	if immigration.Len() == 0 {
		return nil, fmt.Errorf("fact table: %w", errors.ErrEmptyFrame)
	}

	df, err := joinDimensionKey(immigration, countryDim,
		"i94cit_value", "country_name", "country_id", "birth_country_id", true)
	if err != nil {
		return nil, fmt.Errorf("fact table: joining birth country: %w", err)
	}

	df, err = joinDimensionKey(df, countryDim,
		"i94res_value", "country_name", "country_id", "res_country_id", true)
	if err != nil {
		return nil, fmt.Errorf("fact table: joining residence country: %w", err)
	}

	df, err = joinDimensionKey(df, airportDim,
		"i94port", "airport_code", "airport_id", "airport_id", false)
	if err != nil {
		return nil, fmt.Errorf("fact table: joining arrival airport: %w", err)
	}

	df, err = joinDimensionKey(df, demographicsDim,
		"i94addr", "state_code", "state_id", "state_id", false)
	if err != nil {
		return nil, fmt.Errorf("fact table: joining destination state: %w", err)
	}

	for _, rename := range factColumns {
		df, err = df.Rename(rename[0], rename[1])
		if err != nil {
			return nil, fmt.Errorf("fact table: %w", err)
		}
	}

	names := make([]string, 0, len(factColumns)+4)
	names = append(names, "birth_country_id", "res_country_id", "airport_id", "state_id")
	for _, rename := range factColumns {
		names = append(names, rename[1])
	}
	df, err = df.Select(names...)
	if err != nil {
		return nil, fmt.Errorf("fact table: %w", err)
	}

	df, err = withRowNumber(df, "record_id")
	if err != nil {
		return nil, fmt.Errorf("fact table: %w", err)
	}

	result, err := df.Select(append([]string{"record_id"}, names...)...)
	if err != nil {
		return nil, fmt.Errorf("fact table: %w", err)
	}
	return result, nil
}

// joinDimensionKey left-joins a single dimension key column onto the
// frame. The dimension is projected to (natural key, surrogate key)
// first, so no other dimension columns leak into the fact table.
func joinDimensionKey(
	df, dim *dataframe.DataFrame,
	leftKey, dimNaturalKey, dimSurrogateKey, outName string,
	caseInsensitive bool,
) (*dataframe.DataFrame, error) {
	keys, err := dim.Select(dimNaturalKey, dimSurrogateKey)
	if err != nil {
		return nil, err
	}
	if dimSurrogateKey != outName {
		keys, err = keys.Rename(dimSurrogateKey, outName)
		if err != nil {
			return nil, err
		}
	}

	joined, err := df.Join(keys, &dataframe.JoinOptions{
		Type:            dataframe.LeftJoin,
		LeftKey:         leftKey,
		RightKey:        dimNaturalKey,
		CaseInsensitive: caseInsensitive,
	})
	if err != nil {
		return nil, err
	}

	// The natural key column served only as the join key.
	dropName := dimNaturalKey
	if df.HasColumn(dimNaturalKey) {
		dropName = dimNaturalKey + "_right"
	}
	return joined.Drop(dropName), nil
}

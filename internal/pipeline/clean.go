package pipeline

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/d-gambino/udacity-data-engineering-capstone/internal/dataframe"
	"github.com/d-gambino/udacity-data-engineering-capstone/internal/saslabels"
	"github.com/d-gambino/udacity-data-engineering-capstone/internal/series"
)

// mostlyEmptyColumns carry too little data in the I-94 extracts to be
// worth keeping.
var mostlyEmptyColumns = []string{"occup", "entdepu", "insnum"}

// CleanImmigration prepares the decoded immigration frame:
//  1. converts the SAS numeric arrival/departure dates to ISO dates
//  2. drops the mostly-empty columns
//  3. drops rows with duplicate cicid values
//  4. drops rows without a cicid
func CleanImmigration(df *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	result := df
	for _, name := range []string{"arrdate", "depdate"} {
		converted, err := sasDateColumn(result, name)
		if err != nil {
			return nil, err
		}
		result, err = result.WithColumn(converted)
		if err != nil {
			return nil, fmt.Errorf("replacing %s: %w", name, err)
		}
	}

	result = result.Drop(mostlyEmptyColumns...)

	result, err := result.Distinct("cicid")
	if err != nil {
		return nil, fmt.Errorf("deduplicating cicid: %w", err)
	}

	result, err = result.DropNull("cicid")
	if err != nil {
		return nil, fmt.Errorf("dropping rows without cicid: %w", err)
	}

	return result, nil
}

// CleanTemperature drops duplicate temperature rows and rows without an
// average temperature reading.
func CleanTemperature(df *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	result, err := df.Distinct()
	if err != nil {
		return nil, fmt.Errorf("deduplicating temperature rows: %w", err)
	}

	result, err = result.DropNull("AverageTemperature")
	if err != nil {
		return nil, fmt.Errorf("dropping rows without a temperature: %w", err)
	}

	return result, nil
}

// sasDateColumn converts a SAS numeric date column (days since
// 1960-01-01, stored as doubles) to an ISO-8601 string column of the same
// name. Nulls stay null.
func sasDateColumn(df *dataframe.DataFrame, name string) (dataframe.ISeries, error) {
	casted, err := df.CastToInt64(name)
	if err != nil {
		return nil, fmt.Errorf("casting %s to days: %w", name, err)
	}
	col, _ := casted.Column(name)
	days, ok := col.(*series.Series[int64])
	if !ok {
		return nil, fmt.Errorf("casting %s to days: unexpected column type %T", name, col)
	}

	values := make([]string, days.Len())
	valid := make([]bool, days.Len())
	for i := range days.Len() {
		if days.IsNull(i) {
			continue
		}
		values[i] = saslabels.DateISO(days.Value(i))
		valid[i] = true
	}

	s, err := series.NewWithValidity(name, values, valid, memory.NewGoAllocator())
	if err != nil {
		return nil, fmt.Errorf("building %s dates: %w", name, err)
	}
	return s, nil
}

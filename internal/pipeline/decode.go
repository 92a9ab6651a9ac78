package pipeline

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/d-gambino/udacity-data-engineering-capstone/internal/dataframe"
	"github.com/d-gambino/udacity-data-engineering-capstone/internal/saslabels"
	"github.com/d-gambino/udacity-data-engineering-capstone/internal/series"
)

// i94CodeColumns are the I-94 columns stored as SAS doubles that carry
// integer codes or identifiers.
var i94CodeColumns = []string{
	"cicid", "i94yr", "i94mon", "i94cit", "i94res", "i94mode", "i94bir", "i94visa",
}

// DecodeLabels casts the I-94 code columns to integers and attaches the
// human-readable description columns resolved from the SAS label
// descriptions file. Codes absent from a value set yield a null
// description.
func DecodeLabels(immigration *dataframe.DataFrame, labels *saslabels.Labels) (*dataframe.DataFrame, error) {
	countries, err := labels.ValueSet("i94cntyl")
	if err != nil {
		return nil, fmt.Errorf("decoding label sets: %w", err)
	}
	modes, err := labels.ValueSet("i94model")
	if err != nil {
		return nil, fmt.Errorf("decoding label sets: %w", err)
	}
	states, err := labels.ValueSet("i94addrl")
	if err != nil {
		return nil, fmt.Errorf("decoding label sets: %w", err)
	}
	visas := saslabels.VisaCategories()

	df, err := immigration.CastToInt64(i94CodeColumns...)
	if err != nil {
		return nil, fmt.Errorf("casting I-94 code columns: %w", err)
	}

	descriptions := []struct {
		source  string
		target  string
		mapping map[string]string
	}{
		{"i94cit", "i94cit_value", countries},
		{"i94res", "i94res_value", countries},
		{"i94mode", "i94mode_value", modes},
		{"i94addr", "i94addr_value", states},
		{"i94visa", "i94visa_value", visas},
	}

	for _, desc := range descriptions {
		col, exists := df.Column(desc.source)
		if !exists {
			return nil, fmt.Errorf("decoding labels: column %q missing from immigration data", desc.source)
		}
		mapped, err := mapColumn(col, desc.target, desc.mapping)
		if err != nil {
			return nil, err
		}
		df, err = df.WithColumn(mapped)
		if err != nil {
			return nil, fmt.Errorf("attaching %s: %w", desc.target, err)
		}
	}

	return df, nil
}

// mapColumn resolves each value of source through the mapping, producing
// a string column. Null sources and unmapped codes produce nulls.
func mapColumn(source dataframe.ISeries, name string, mapping map[string]string) (dataframe.ISeries, error) {
	values := make([]string, source.Len())
	valid := make([]bool, source.Len())

	for i := range source.Len() {
		if source.IsNull(i) {
			continue
		}
		if mapped, ok := mapping[source.GetAsString(i)]; ok {
			values[i] = mapped
			valid[i] = true
		}
	}

	s, err := series.NewWithValidity(name, values, valid, memory.NewGoAllocator())
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", name, err)
	}
	return s, nil
}

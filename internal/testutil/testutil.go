// Package testutil provides helpers for building small frames in tests.
package testutil

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/d-gambino/udacity-data-engineering-capstone/internal/dataframe"
	"github.com/d-gambino/udacity-data-engineering-capstone/internal/series"
)

// Series builds a fully valid series and fails the test on error.
func Series[T any](t *testing.T, name string, values []T) *series.Series[T] {
	t.Helper()
	s, err := series.NewWithValidity(name, values, nil, memory.NewGoAllocator())
	require.NoError(t, err)
	return s
}

// SeriesWithNulls builds a series with the given validity mask.
func SeriesWithNulls[T any](t *testing.T, name string, values []T, valid []bool) *series.Series[T] {
	t.Helper()
	s, err := series.NewWithValidity(name, values, valid, memory.NewGoAllocator())
	require.NoError(t, err)
	return s
}

// Frame builds a DataFrame from the given series.
func Frame(t *testing.T, cols ...dataframe.ISeries) *dataframe.DataFrame {
	t.Helper()
	return dataframe.New(cols...)
}

// ColumnStrings returns every value in a column rendered as strings,
// with nulls rendered as empty strings.
func ColumnStrings(t *testing.T, df *dataframe.DataFrame, name string) []string {
	t.Helper()
	col, ok := df.Column(name)
	require.True(t, ok, "column %q not found", name)
	out := make([]string, col.Len())
	for i := range out {
		if col.IsNull(i) {
			continue
		}
		out[i] = col.GetAsString(i)
	}
	return out
}

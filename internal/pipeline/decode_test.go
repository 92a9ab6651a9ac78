package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d-gambino/udacity-data-engineering-capstone/internal/dataframe"
	"github.com/d-gambino/udacity-data-engineering-capstone/internal/saslabels"
	"github.com/d-gambino/udacity-data-engineering-capstone/internal/series"
	"github.com/d-gambino/udacity-data-engineering-capstone/internal/testutil"
)

const testLabelContent = `value i94cntyl
   101 = 'ALBANIA'
   582 = 'MEXICO' ;
value i94model
   1 = 'Air'
   2 = 'Sea' ;
value i94addrl
   'NY'='NEW YORK'
   'CA'='CALIFORNIA' ;
`

func testLabels(t *testing.T) *saslabels.Labels {
	t.Helper()
	labels, err := saslabels.Parse(strings.NewReader(testLabelContent))
	require.NoError(t, err)
	return labels
}

// rawImmigrationFrame mirrors the staged I-94 extract: code columns as
// SAS doubles, free-text columns as strings.
func rawImmigrationFrame(t *testing.T) *dataframe.DataFrame {
	t.Helper()
	return testutil.Frame(t,
		testutil.Series(t, "cicid", []float64{1, 2, 3}),
		testutil.Series(t, "i94yr", []float64{2016, 2016, 2016}),
		testutil.Series(t, "i94mon", []float64{4, 4, 4}),
		testutil.Series(t, "i94cit", []float64{101, 582, 999}),
		testutil.Series(t, "i94res", []float64{582, 101, 101}),
		testutil.SeriesWithNulls(t, "i94mode", []float64{1, 2, 0}, []bool{true, true, false}),
		testutil.Series(t, "i94bir", []float64{34, 28, 61}),
		testutil.Series(t, "i94visa", []float64{2, 1, 3}),
		testutil.SeriesWithNulls(t, "i94addr", []string{"NY", "CA", ""}, []bool{true, true, false}),
	)
}

func TestDecodeLabels(t *testing.T) {
	df := rawImmigrationFrame(t)
	defer df.Release()

	out, err := DecodeLabels(df, testLabels(t))
	require.NoError(t, err)

	// Code columns become integers
	cicid, ok := out.Column("cicid")
	require.True(t, ok)
	_, isInt := cicid.(*series.Series[int64])
	assert.True(t, isInt, "cicid cast to int64, got %T", cicid)

	assert.Equal(t, []string{"ALBANIA", "MEXICO", ""},
		testutil.ColumnStrings(t, out, "i94cit_value"))
	assert.Equal(t, []string{"MEXICO", "ALBANIA", "ALBANIA"},
		testutil.ColumnStrings(t, out, "i94res_value"))
	assert.Equal(t, []string{"Air", "Sea", ""},
		testutil.ColumnStrings(t, out, "i94mode_value"))
	assert.Equal(t, []string{"NEW YORK", "CALIFORNIA", ""},
		testutil.ColumnStrings(t, out, "i94addr_value"))
	assert.Equal(t, []string{"Pleasure", "Business", "Student"},
		testutil.ColumnStrings(t, out, "i94visa_value"))

	// Unmapped code 999 yields a null description, not an empty string
	cit, _ := out.Column("i94cit_value")
	assert.True(t, cit.IsNull(2))
	mode, _ := out.Column("i94mode_value")
	assert.True(t, mode.IsNull(2), "null code stays null")
}

func TestDecodeLabelsMissingColumn(t *testing.T) {
	df := testutil.Frame(t, testutil.Series(t, "cicid", []float64{1}))
	defer df.Release()

	_, err := DecodeLabels(df, testLabels(t))
	assert.Error(t, err)
}

func TestDecodeLabelsMissingValueSet(t *testing.T) {
	labels, err := saslabels.Parse(strings.NewReader("value i94model\n 1 = 'Air' ;"))
	require.NoError(t, err)

	df := rawImmigrationFrame(t)
	defer df.Release()

	_, err = DecodeLabels(df, labels)
	assert.Error(t, err, "country value set missing")
}

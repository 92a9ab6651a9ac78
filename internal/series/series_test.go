package series

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeries(t *testing.T) {
	mem := memory.NewGoAllocator()

	s := New("age", []int64{25, 30, 35}, mem)
	defer s.Release()

	assert.Equal(t, "age", s.Name())
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 0, s.NullCount())
	assert.Equal(t, []int64{25, 30, 35}, s.Values())
	assert.Equal(t, int64(30), s.Value(1))
}

func TestNewWithValidity(t *testing.T) {
	mem := memory.NewGoAllocator()

	s, err := NewWithValidity("temp", []float64{12.5, 0, 18.25}, []bool{true, false, true}, mem)
	require.NoError(t, err)
	defer s.Release()

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 1, s.NullCount())
	assert.False(t, s.IsNull(0))
	assert.True(t, s.IsNull(1))
	assert.Equal(t, []bool{true, false, true}, s.Validity())

	// Null slots read as the zero value
	assert.Equal(t, float64(0), s.Value(1))
	assert.Equal(t, []float64{12.5, 0, 18.25}, s.Values())
}

func TestNewWithValidityLengthMismatch(t *testing.T) {
	mem := memory.NewGoAllocator()

	_, err := NewWithValidity("x", []int64{1, 2, 3}, []bool{true}, mem)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validity length")
}

func TestNewWithValidityUnsupportedType(t *testing.T) {
	mem := memory.NewGoAllocator()

	_, err := NewWithValidity("x", []uint16{1, 2}, nil, mem)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported element type")
}

func TestValueOutOfRange(t *testing.T) {
	s := New("x", []string{"a"}, memory.NewGoAllocator())
	defer s.Release()

	assert.Equal(t, "", s.Value(-1))
	assert.Equal(t, "", s.Value(5))
}

func TestGetAsString(t *testing.T) {
	mem := memory.NewGoAllocator()

	strings := New("s", []string{"NY", "CA"}, mem)
	defer strings.Release()
	ints := New("i", []int64{42, -7}, mem)
	defer ints.Release()
	floats, err := NewWithValidity("f", []float64{3.5, 0}, []bool{true, false}, mem)
	require.NoError(t, err)
	defer floats.Release()
	bools := New("b", []bool{true, false}, mem)
	defer bools.Release()

	assert.Equal(t, "NY", strings.GetAsString(0))
	assert.Equal(t, "-7", ints.GetAsString(1))
	assert.Equal(t, "3.5", floats.GetAsString(0))
	assert.Equal(t, "", floats.GetAsString(1), "null renders empty")
	assert.Equal(t, "true", bools.GetAsString(0))
	assert.Equal(t, "", bools.GetAsString(9))
}

func TestString(t *testing.T) {
	s, err := NewWithValidity("cicid", []int64{1, 2}, []bool{true, false}, memory.NewGoAllocator())
	require.NoError(t, err)
	defer s.Release()

	assert.Equal(t, "Series[int64]: cicid (len=2, nulls=1)", s.String())
}

func TestArrayRetains(t *testing.T) {
	s := New("x", []int32{1, 2, 3}, memory.NewGoAllocator())
	defer s.Release()

	arr := s.Array()
	require.NotNil(t, arr)
	assert.Equal(t, 3, arr.Len())
	arr.Release()

	// The series still owns its reference
	assert.Equal(t, 3, s.Len())
}

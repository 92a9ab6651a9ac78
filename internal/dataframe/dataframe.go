// Package dataframe provides the eager, column-oriented table operations
// the ETL stages are built on: projection, row selection, deduplication,
// aggregation and joins over Arrow-backed series.
package dataframe

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/d-gambino/udacity-data-engineering-capstone/internal/errors"
	"github.com/d-gambino/udacity-data-engineering-capstone/internal/series"
)

// DataFrame represents a table of data with typed columns
type DataFrame struct {
	columns map[string]ISeries
	order   []string // Maintains column order
}

// New creates a new DataFrame from a slice of ISeries
func New(seriesList ...ISeries) *DataFrame {
	columns := make(map[string]ISeries)
	order := make([]string, 0, len(seriesList))

	for _, s := range seriesList {
		name := s.Name()
		if _, exists := columns[name]; !exists {
			order = append(order, name)
		}
		columns[name] = s
	}

	return &DataFrame{
		columns: columns,
		order:   order,
	}
}

// Columns returns the names of all columns in order
func (df *DataFrame) Columns() []string {
	if len(df.order) == 0 {
		return []string{}
	}
	return append([]string(nil), df.order...)
}

// Len returns the number of rows (all columns have the same length)
func (df *DataFrame) Len() int {
	if len(df.order) == 0 {
		return 0
	}
	if s, exists := df.columns[df.order[0]]; exists {
		return s.Len()
	}
	return 0
}

// Width returns the number of columns
func (df *DataFrame) Width() int {
	return len(df.columns)
}

// Column returns the series for the given column name
func (df *DataFrame) Column(name string) (ISeries, bool) {
	s, exists := df.columns[name]
	return s, exists
}

// HasColumn checks if a column exists
func (df *DataFrame) HasColumn(name string) bool {
	_, exists := df.columns[name]
	return exists
}

// Select returns a new DataFrame with only the specified columns, in the
// specified order. Unknown names are an error: the star-schema outputs
// have fixed column lists and a silent drop would corrupt them.
func (df *DataFrame) Select(names ...string) (*DataFrame, error) {
	newColumns := make(map[string]ISeries)
	newOrder := make([]string, 0, len(names))

	for _, name := range names {
		s, exists := df.columns[name]
		if !exists {
			return nil, errors.NewColumnNotFoundError("Select", name)
		}
		newColumns[name] = s
		newOrder = append(newOrder, name)
	}

	return &DataFrame{columns: newColumns, order: newOrder}, nil
}

// Drop returns a new DataFrame without the specified columns. Missing
// names are ignored, matching the tolerant column drops of the cleaning
// stage.
func (df *DataFrame) Drop(names ...string) *DataFrame {
	dropSet := make(map[string]bool, len(names))
	for _, name := range names {
		dropSet[name] = true
	}

	newColumns := make(map[string]ISeries)
	newOrder := make([]string, 0, len(df.order))

	for _, name := range df.order {
		if !dropSet[name] {
			newColumns[name] = df.columns[name]
			newOrder = append(newOrder, name)
		}
	}

	return &DataFrame{columns: newColumns, order: newOrder}
}

// Rename returns a new DataFrame with the column renamed.
func (df *DataFrame) Rename(oldName, newName string) (*DataFrame, error) {
	s, exists := df.columns[oldName]
	if !exists {
		return nil, errors.NewColumnNotFoundError("Rename", oldName)
	}
	if oldName == newName {
		return New(df.inOrder()...), nil
	}
	if _, exists := df.columns[newName]; exists {
		return nil, errors.NewInvalidInputError("Rename",
			fmt.Sprintf("column %q already exists", newName))
	}

	newColumns := make(map[string]ISeries, len(df.columns))
	newOrder := make([]string, len(df.order))
	for i, name := range df.order {
		if name == oldName {
			renamed := renameSeries(s, newName)
			newColumns[newName] = renamed
			newOrder[i] = newName
			continue
		}
		newColumns[name] = df.columns[name]
		newOrder[i] = name
	}

	return &DataFrame{columns: newColumns, order: newOrder}, nil
}

// WithColumn returns a new DataFrame with the series added, or replacing
// an existing column of the same name.
func (df *DataFrame) WithColumn(s ISeries) (*DataFrame, error) {
	if df.Len() > 0 && s.Len() != df.Len() {
		return nil, errors.NewValidationError("WithColumn", s.Name(),
			fmt.Sprintf("length %d does not match frame length %d", s.Len(), df.Len()))
	}

	newColumns := make(map[string]ISeries, len(df.columns)+1)
	for name, col := range df.columns {
		newColumns[name] = col
	}
	newOrder := append([]string(nil), df.order...)
	if _, exists := df.columns[s.Name()]; !exists {
		newOrder = append(newOrder, s.Name())
	}
	newColumns[s.Name()] = s

	return &DataFrame{columns: newColumns, order: newOrder}, nil
}

// String returns a string representation of the DataFrame
func (df *DataFrame) String() string {
	if len(df.columns) == 0 {
		return "DataFrame[empty]"
	}

	parts := []string{fmt.Sprintf("DataFrame[%dx%d]", df.Len(), df.Width())}
	for _, name := range df.order {
		s := df.columns[name]
		parts = append(parts, fmt.Sprintf("  %s: %s", name, s.DataType().String()))
	}

	return strings.Join(parts, "\n")
}

// Release releases all underlying Arrow memory
func (df *DataFrame) Release() {
	for _, s := range df.columns {
		s.Release()
	}
}

func (df *DataFrame) inOrder() []ISeries {
	out := make([]ISeries, 0, len(df.order))
	for _, name := range df.order {
		out = append(out, df.columns[name])
	}
	return out
}

// renameSeries rebuilds a series under a new name, copying the values and
// validity of the original.
func renameSeries(s ISeries, newName string) ISeries {
	arr := s.Array()
	defer arr.Release()
	return rebuildSeries(newName, arr, identityIndices(arr.Len()), memory.NewGoAllocator())
}

func identityIndices(n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

// rebuildSeries constructs a new series by gathering rows of arr in index
// order. An index of -1 produces a null slot, which is how unmatched join
// rows surface in the fact table.
func rebuildSeries(name string, arr arrow.Array, indices []int, mem memory.Allocator) ISeries {
	switch typedArr := arr.(type) {
	case *array.String:
		return gatherTyped(name, typedArr.Len(), indices, mem, typedArr.IsNull, typedArr.Value)
	case *array.Int64:
		return gatherTyped(name, typedArr.Len(), indices, mem, typedArr.IsNull, typedArr.Value)
	case *array.Int32:
		return gatherTyped(name, typedArr.Len(), indices, mem, typedArr.IsNull, typedArr.Value)
	case *array.Float64:
		return gatherTyped(name, typedArr.Len(), indices, mem, typedArr.IsNull, typedArr.Value)
	case *array.Float32:
		return gatherTyped(name, typedArr.Len(), indices, mem, typedArr.IsNull, typedArr.Value)
	case *array.Boolean:
		return gatherTyped(name, typedArr.Len(), indices, mem, typedArr.IsNull, typedArr.Value)
	default:
		// Unsupported physical types degrade to an all-null string column.
		values := make([]string, len(indices))
		valid := make([]bool, len(indices))
		s, _ := series.NewWithValidity(name, values, valid, mem)
		return s
	}
}

// gatherTyped is the generic gather kernel behind rebuildSeries.
func gatherTyped[T any](
	name string, srcLen int, indices []int, mem memory.Allocator,
	isNull func(int) bool, getValue func(int) T,
) ISeries {
	values := make([]T, len(indices))
	valid := make([]bool, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= srcLen || isNull(idx) {
			continue
		}
		values[i] = getValue(idx)
		valid[i] = true
	}
	s, err := series.NewWithValidity(name, values, valid, mem)
	if err != nil {
		// All gathered types are constructible; reaching here is a bug.
		panic(err)
	}
	return s
}

// CastToInt64 returns a new DataFrame with the named columns converted to
// int64. Floats truncate, strings parse, and values that cannot be
// represented become null, matching how the upstream engine casts the
// I-94 code columns.
func (df *DataFrame) CastToInt64(names ...string) (*DataFrame, error) {
	result := df
	for _, name := range names {
		s, exists := df.columns[name]
		if !exists {
			return nil, errors.NewColumnNotFoundError("CastToInt64", name)
		}

		casted, err := castSeriesToInt64(s)
		if err != nil {
			return nil, err
		}
		result, err = result.WithColumn(casted)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func castSeriesToInt64(s ISeries) (ISeries, error) {
	arr := s.Array()
	defer arr.Release()

	mem := memory.NewGoAllocator()
	values := make([]int64, arr.Len())
	valid := make([]bool, arr.Len())

	switch typedArr := arr.(type) {
	case *array.Int64:
		return rebuildSeries(s.Name(), arr, identityIndices(arr.Len()), mem), nil
	case *array.Int32:
		for i := range values {
			if typedArr.IsNull(i) {
				continue
			}
			values[i] = int64(typedArr.Value(i))
			valid[i] = true
		}
	case *array.Float64:
		for i := range values {
			if typedArr.IsNull(i) {
				continue
			}
			values[i] = int64(typedArr.Value(i))
			valid[i] = true
		}
	case *array.Float32:
		for i := range values {
			if typedArr.IsNull(i) {
				continue
			}
			values[i] = int64(typedArr.Value(i))
			valid[i] = true
		}
	case *array.String:
		for i := range values {
			if typedArr.IsNull(i) {
				continue
			}
			parsed, err := strconv.ParseInt(strings.TrimSpace(typedArr.Value(i)), 10, 64)
			if err != nil {
				continue // unparsable values become null
			}
			values[i] = parsed
			valid[i] = true
		}
	default:
		return nil, errors.NewUnsupportedTypeError("CastToInt64", s.DataType().String())
	}

	result, err := series.NewWithValidity(s.Name(), values, valid, mem)
	if err != nil {
		return nil, errors.NewInternalError("CastToInt64", err)
	}
	return result, nil
}

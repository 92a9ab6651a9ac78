package dataframe

import (
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	xxhash "github.com/cespare/xxhash/v2"

	"github.com/d-gambino/udacity-data-engineering-capstone/internal/errors"
)

// keySeparator keeps multi-column row keys unambiguous when column values
// themselves contain separators.
const keySeparator = "\x1f"

// Take returns a new DataFrame with rows gathered in index order. An
// index of -1 produces an all-null row, the representation left joins use
// for unmatched rows.
func (df *DataFrame) Take(indices []int) *DataFrame {
	mem := memory.NewGoAllocator()
	gathered := make([]ISeries, 0, len(df.order))
	for _, name := range df.order {
		arr := df.columns[name].Array()
		gathered = append(gathered, rebuildSeries(name, arr, indices, mem))
		arr.Release()
	}
	return New(gathered...)
}

// Filter returns a new DataFrame containing the rows for which keep
// returns true.
func (df *DataFrame) Filter(keep func(row int) bool) *DataFrame {
	indices := make([]int, 0, df.Len())
	for i := range df.Len() {
		if keep(i) {
			indices = append(indices, i)
		}
	}
	return df.Take(indices)
}

// FilterStringEqual returns the rows where the named string column equals
// value. Null slots never match.
func (df *DataFrame) FilterStringEqual(name, value string) (*DataFrame, error) {
	s, exists := df.columns[name]
	if !exists {
		return nil, errors.NewColumnNotFoundError("Filter", name)
	}
	return df.Filter(func(row int) bool {
		return !s.IsNull(row) && s.GetAsString(row) == value
	}), nil
}

// rowKey builds a composite key over the subset columns for row i.
func rowKey(cols []ISeries, i int) string {
	parts := make([]string, len(cols))
	for c, col := range cols {
		if col.IsNull(i) {
			parts[c] = "\x00" // distinguish null from empty string
		} else {
			parts[c] = col.GetAsString(i)
		}
	}
	return strings.Join(parts, keySeparator)
}

func (df *DataFrame) subsetColumns(op string, subset []string) ([]ISeries, error) {
	names := subset
	if len(names) == 0 {
		names = df.order
	}
	cols := make([]ISeries, 0, len(names))
	for _, name := range names {
		s, exists := df.columns[name]
		if !exists {
			return nil, errors.NewColumnNotFoundError(op, name)
		}
		cols = append(cols, s)
	}
	return cols, nil
}

// Distinct returns a new DataFrame keeping the first occurrence of each
// distinct combination of the subset columns. With no subset, full rows
// are compared. Row keys are bucketed by xxhash with full-key collision
// checks.
func (df *DataFrame) Distinct(subset ...string) (*DataFrame, error) {
	cols, err := df.subsetColumns("Distinct", subset)
	if err != nil {
		return nil, err
	}

	seen := make(map[uint64][]string)
	indices := make([]int, 0, df.Len())
	for i := range df.Len() {
		key := rowKey(cols, i)
		hash := xxhash.Sum64String(key)
		bucket := seen[hash]
		duplicate := false
		for _, existing := range bucket {
			if existing == key {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		seen[hash] = append(bucket, key)
		indices = append(indices, i)
	}

	return df.Take(indices), nil
}

// DropNull returns a new DataFrame without the rows that hold a null in
// any of the subset columns. With no subset, every column is checked.
func (df *DataFrame) DropNull(subset ...string) (*DataFrame, error) {
	cols, err := df.subsetColumns("DropNull", subset)
	if err != nil {
		return nil, err
	}

	return df.Filter(func(row int) bool {
		for _, col := range cols {
			if col.IsNull(row) {
				return false
			}
		}
		return true
	}), nil
}

// Sort returns a new DataFrame sorted by a single column.
func (df *DataFrame) Sort(name string, ascending bool) (*DataFrame, error) {
	return df.SortBy([]string{name}, []bool{ascending})
}

// SortBy returns a new DataFrame sorted by multiple columns. The sort is
// stable and nulls order last regardless of direction.
func (df *DataFrame) SortBy(names []string, ascending []bool) (*DataFrame, error) {
	if len(names) != len(ascending) {
		return nil, errors.NewInvalidInputError("Sort",
			"names and ascending must have the same length")
	}

	comparators := make([]func(i, j int) int, len(names))
	for c, name := range names {
		s, exists := df.columns[name]
		if !exists {
			return nil, errors.NewColumnNotFoundError("Sort", name)
		}
		cmp, err := columnComparator(s)
		if err != nil {
			return nil, err
		}
		comparators[c] = cmp
	}

	indices := identityIndices(df.Len())
	sort.SliceStable(indices, func(a, b int) bool {
		i, j := indices[a], indices[b]
		for c, cmp := range comparators {
			result := cmp(i, j)
			if result == 0 {
				continue
			}
			if ascending[c] {
				return result < 0
			}
			return result > 0
		}
		return false
	})

	return df.Take(indices), nil
}

// columnComparator builds a three-way row comparator for a column. Null
// slots compare greater than any value so they sink to the end of an
// ascending sort.
func columnComparator(s ISeries) (func(i, j int) int, error) {
	arr := s.Array()
	// The comparator borrows the array for the duration of the sort; the
	// frame retains its own reference.
	defer arr.Release()

	switch typedArr := arr.(type) {
	case *array.String:
		return compareTyped(typedArr, typedArr.Value, strings.Compare), nil
	case *array.Int64:
		return compareTyped(typedArr, typedArr.Value, compareOrdered[int64]), nil
	case *array.Int32:
		return compareTyped(typedArr, typedArr.Value, compareOrdered[int32]), nil
	case *array.Float64:
		return compareTyped(typedArr, typedArr.Value, compareOrdered[float64]), nil
	case *array.Float32:
		return compareTyped(typedArr, typedArr.Value, compareOrdered[float32]), nil
	case *array.Boolean:
		return compareTyped(typedArr, typedArr.Value, compareBool), nil
	default:
		return nil, errors.NewUnsupportedTypeError("Sort", s.DataType().String())
	}
}

func compareTyped[T any](arr arrow.Array, getValue func(int) T, cmp func(a, b T) int) func(i, j int) int {
	return func(i, j int) int {
		iNull, jNull := arr.IsNull(i), arr.IsNull(j)
		switch {
		case iNull && jNull:
			return 0
		case iNull:
			return 1
		case jNull:
			return -1
		}
		return cmp(getValue(i), getValue(j))
	}
}

func compareOrdered[T int32 | int64 | float32 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// Concat concatenates DataFrames vertically. All frames must share the
// same column names, order and types; the partitioned Parquet reader uses
// this to stitch file chunks together.
func (df *DataFrame) Concat(others ...*DataFrame) (*DataFrame, error) {
	if len(others) == 0 {
		return df.Take(identityIndices(df.Len())), nil
	}

	for _, other := range others {
		if err := df.checkSameSchema(other); err != nil {
			return nil, err
		}
	}

	frames := append([]*DataFrame{df}, others...)
	mem := memory.NewGoAllocator()
	combined := make([]ISeries, 0, len(df.order))

	for _, name := range df.order {
		parts := make([]ISeries, 0, len(frames))
		for _, frame := range frames {
			parts = append(parts, frame.columns[name])
		}
		s, err := concatSeries(name, parts, mem)
		if err != nil {
			for _, done := range combined {
				done.Release()
			}
			return nil, err
		}
		combined = append(combined, s)
	}

	return New(combined...), nil
}

func (df *DataFrame) checkSameSchema(other *DataFrame) error {
	if len(df.order) != len(other.order) {
		return errors.NewInvalidInputError("Concat", "frames have different column counts")
	}
	for i, name := range df.order {
		if other.order[i] != name {
			return errors.NewInvalidInputError("Concat",
				"frames have different column order")
		}
		if df.columns[name].DataType().ID() != other.columns[name].DataType().ID() {
			return errors.NewValidationError("Concat", name, "column types differ")
		}
	}
	return nil
}

// concatSeries stitches same-typed series together through a
// concatenated arrow array.
func concatSeries(name string, parts []ISeries, mem memory.Allocator) (ISeries, error) {
	arrs := make([]arrow.Array, len(parts))
	total := 0
	for i, part := range parts {
		arrs[i] = part.Array()
		total += part.Len()
	}
	defer func() {
		for _, arr := range arrs {
			arr.Release()
		}
	}()

	if len(arrs) == 1 {
		return rebuildSeries(name, arrs[0], identityIndices(arrs[0].Len()), mem), nil
	}

	combined, err := array.Concatenate(arrs, mem)
	if err != nil {
		return nil, errors.NewInternalError("Concat", err)
	}
	defer combined.Release()

	return rebuildSeries(name, combined, identityIndices(total), mem), nil
}

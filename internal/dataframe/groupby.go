package dataframe

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"golang.org/x/exp/constraints"

	"github.com/d-gambino/udacity-data-engineering-capstone/internal/errors"
	"github.com/d-gambino/udacity-data-engineering-capstone/internal/series"
)

type aggKind int

const (
	aggSum aggKind = iota
	aggMin
	aggMax
	aggCount
	aggFirst
)

func (k aggKind) String() string {
	switch k {
	case aggSum:
		return "sum"
	case aggMin:
		return "min"
	case aggMax:
		return "max"
	case aggCount:
		return "count"
	case aggFirst:
		return "first"
	default:
		return "unknown"
	}
}

// Aggregation describes one aggregated output column of a GroupBy.
type Aggregation struct {
	kind   aggKind
	column string
	alias  string
}

// Sum aggregates the numeric column as a sum. Null values are skipped; a
// group with only nulls yields null.
func Sum(column string) Aggregation { return Aggregation{kind: aggSum, column: column} }

// Min aggregates the column as its minimum value.
func Min(column string) Aggregation { return Aggregation{kind: aggMin, column: column} }

// Max aggregates the column as its maximum value.
func Max(column string) Aggregation { return Aggregation{kind: aggMax, column: column} }

// Count counts the rows of each group.
func Count() Aggregation { return Aggregation{kind: aggCount} }

// First keeps the value of the group's first row.
func First(column string) Aggregation { return Aggregation{kind: aggFirst, column: column} }

// As sets the output column name for the aggregation.
func (a Aggregation) As(name string) Aggregation {
	a.alias = name
	return a
}

func (a Aggregation) outputName() string {
	if a.alias != "" {
		return a.alias
	}
	if a.kind == aggCount {
		return "count"
	}
	return fmt.Sprintf("%s_%s", a.kind, a.column)
}

// GroupedFrame is a DataFrame grouped by key columns, pending aggregation.
type GroupedFrame struct {
	df   *DataFrame
	keys []string
}

// GroupBy groups the DataFrame by the given key columns. Groups appear in
// the result in first-occurrence order.
func (df *DataFrame) GroupBy(keys ...string) *GroupedFrame {
	return &GroupedFrame{df: df, keys: keys}
}

// Agg computes the aggregations per group and returns a frame of the key
// columns followed by one column per aggregation.
func (g *GroupedFrame) Agg(aggs ...Aggregation) (*DataFrame, error) {
	if len(g.keys) == 0 {
		return nil, errors.NewInvalidInputError("GroupBy", "at least one key column is required")
	}

	keyCols, err := g.df.subsetColumns("GroupBy", g.keys)
	if err != nil {
		return nil, err
	}

	groupIndex := make(map[string]int)
	var firstRows []int
	var groupRows [][]int
	for i := range g.df.Len() {
		key := rowKey(keyCols, i)
		idx, exists := groupIndex[key]
		if !exists {
			idx = len(firstRows)
			groupIndex[key] = idx
			firstRows = append(firstRows, i)
			groupRows = append(groupRows, nil)
		}
		groupRows[idx] = append(groupRows[idx], i)
	}

	mem := memory.NewGoAllocator()
	result := make([]ISeries, 0, len(g.keys)+len(aggs))

	for c, name := range g.keys {
		arr := keyCols[c].Array()
		result = append(result, rebuildSeries(name, arr, firstRows, mem))
		arr.Release()
	}

	for _, agg := range aggs {
		col, err := g.aggregateColumn(agg, groupRows, firstRows, mem)
		if err != nil {
			return nil, err
		}
		result = append(result, col)
	}

	return New(result...), nil
}

func (g *GroupedFrame) aggregateColumn(
	agg Aggregation, groupRows [][]int, firstRows []int, mem memory.Allocator,
) (ISeries, error) {
	name := agg.outputName()

	if agg.kind == aggCount {
		counts := make([]int64, len(groupRows))
		for i, rows := range groupRows {
			counts[i] = int64(len(rows))
		}
		s, err := series.NewWithValidity(name, counts, nil, mem)
		if err != nil {
			return nil, errors.NewInternalError("GroupBy", err)
		}
		return s, nil
	}

	source, exists := g.df.Column(agg.column)
	if !exists {
		return nil, errors.NewColumnNotFoundError("GroupBy", agg.column)
	}

	if agg.kind == aggFirst {
		arr := source.Array()
		defer arr.Release()
		return rebuildSeries(name, arr, firstRows, mem), nil
	}

	arr := source.Array()
	defer arr.Release()

	switch typedArr := arr.(type) {
	case *array.Int64:
		return aggregateNumeric(name, agg.kind, groupRows, typedArr.IsNull, typedArr.Value, mem)
	case *array.Int32:
		return aggregateNumeric(name, agg.kind, groupRows, typedArr.IsNull, typedArr.Value, mem)
	case *array.Float64:
		return aggregateNumeric(name, agg.kind, groupRows, typedArr.IsNull, typedArr.Value, mem)
	case *array.Float32:
		return aggregateNumeric(name, agg.kind, groupRows, typedArr.IsNull, typedArr.Value, mem)
	case *array.String:
		if agg.kind == aggSum {
			return nil, errors.NewValidationError("GroupBy", agg.column, "cannot sum a string column")
		}
		return aggregateString(name, agg.kind, groupRows, typedArr, mem)
	default:
		return nil, errors.NewUnsupportedTypeError("GroupBy", source.DataType().String())
	}
}

// aggregateNumeric computes sum/min/max over each group of a numeric
// column, skipping nulls. Empty (all-null) groups produce null.
func aggregateNumeric[T constraints.Integer | constraints.Float](
	name string, kind aggKind, groupRows [][]int,
	isNull func(int) bool, getValue func(int) T, mem memory.Allocator,
) (ISeries, error) {
	values := make([]T, len(groupRows))
	valid := make([]bool, len(groupRows))

	for i, rows := range groupRows {
		var acc T
		seen := false
		for _, row := range rows {
			if isNull(row) {
				continue
			}
			v := getValue(row)
			if !seen {
				acc = v
				seen = true
				continue
			}
			switch kind {
			case aggSum:
				acc += v
			case aggMin:
				if v < acc {
					acc = v
				}
			case aggMax:
				if v > acc {
					acc = v
				}
			}
		}
		values[i] = acc
		valid[i] = seen
	}

	s, err := series.NewWithValidity(name, values, valid, mem)
	if err != nil {
		return nil, errors.NewInternalError("GroupBy", err)
	}
	return s, nil
}

func aggregateString(
	name string, kind aggKind, groupRows [][]int, arr *array.String, mem memory.Allocator,
) (ISeries, error) {
	values := make([]string, len(groupRows))
	valid := make([]bool, len(groupRows))

	for i, rows := range groupRows {
		var acc string
		seen := false
		for _, row := range rows {
			if arr.IsNull(row) {
				continue
			}
			v := arr.Value(row)
			if !seen {
				acc = v
				seen = true
				continue
			}
			if cmp := strings.Compare(v, acc); (kind == aggMin && cmp < 0) || (kind == aggMax && cmp > 0) {
				acc = v
			}
		}
		values[i] = acc
		valid[i] = seen
	}

	s, err := series.NewWithValidity(name, values, valid, mem)
	if err != nil {
		return nil, errors.NewInternalError("GroupBy", err)
	}
	return s, nil
}

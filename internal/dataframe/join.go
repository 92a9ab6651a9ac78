package dataframe

import (
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	xxhash "github.com/cespare/xxhash/v2"

	"github.com/d-gambino/udacity-data-engineering-capstone/internal/errors"
)

// JoinType represents the type of join operation
type JoinType int

const (
	// InnerJoin keeps only rows with matches on both sides
	InnerJoin JoinType = iota
	// LeftJoin keeps all left rows, null-filling right columns for
	// unmatched rows
	LeftJoin
)

func (jt JoinType) String() string {
	switch jt {
	case InnerJoin:
		return "inner"
	case LeftJoin:
		return "left"
	default:
		return "unknown"
	}
}

// JoinOptions configures a join operation
type JoinOptions struct {
	Type     JoinType
	LeftKey  string
	RightKey string
	// CaseInsensitive folds key values before matching. The fact table
	// joins country names produced by two different sources this way.
	CaseInsensitive bool
}

// joinKeyEntry keeps the full key alongside bucketed row indices so hash
// collisions cannot produce false matches.
type joinKeyEntry struct {
	key  string
	rows []int
}

// Join performs a hash join between two DataFrames. Null key values never
// match. When a right column name collides with a left column name, the
// right column is suffixed with "_right".
func (df *DataFrame) Join(right *DataFrame, options *JoinOptions) (*DataFrame, error) {
	if options == nil {
		return nil, errors.NewInvalidInputError("Join", "options must not be nil")
	}

	leftCol, exists := df.Column(options.LeftKey)
	if !exists {
		return nil, errors.NewColumnNotFoundError("Join", options.LeftKey)
	}
	rightCol, exists := right.Column(options.RightKey)
	if !exists {
		return nil, errors.NewColumnNotFoundError("Join", options.RightKey)
	}

	normalize := func(s string) string { return s }
	if options.CaseInsensitive {
		normalize = strings.ToLower
	}

	// Build phase: bucket right rows by hashed key.
	hashMap := make(map[uint64][]*joinKeyEntry)
	for i := range right.Len() {
		if rightCol.IsNull(i) {
			continue
		}
		key := normalize(rightCol.GetAsString(i))
		hash := xxhash.Sum64String(key)
		bucket := hashMap[hash]
		var entry *joinKeyEntry
		for _, candidate := range bucket {
			if candidate.key == key {
				entry = candidate
				break
			}
		}
		if entry == nil {
			entry = &joinKeyEntry{key: key}
			hashMap[hash] = append(bucket, entry)
		}
		entry.rows = append(entry.rows, i)
	}

	// Probe phase: collect matched index pairs, -1 marking unmatched
	// right rows for left joins.
	var leftIndices, rightIndices []int
	for i := range df.Len() {
		if !leftCol.IsNull(i) {
			key := normalize(leftCol.GetAsString(i))
			if entry := lookupJoinKey(hashMap, key); entry != nil {
				for _, rightIdx := range entry.rows {
					leftIndices = append(leftIndices, i)
					rightIndices = append(rightIndices, rightIdx)
				}
				continue
			}
		}
		if options.Type == LeftJoin {
			leftIndices = append(leftIndices, i)
			rightIndices = append(rightIndices, -1)
		}
	}

	return df.buildJoinResult(right, leftIndices, rightIndices)
}

func lookupJoinKey(hashMap map[uint64][]*joinKeyEntry, key string) *joinKeyEntry {
	for _, entry := range hashMap[xxhash.Sum64String(key)] {
		if entry.key == key {
			return entry
		}
	}
	return nil
}

func (df *DataFrame) buildJoinResult(right *DataFrame, leftIndices, rightIndices []int) (*DataFrame, error) {
	mem := memory.NewGoAllocator()
	result := make([]ISeries, 0, len(df.order)+len(right.order))

	for _, name := range df.order {
		arr := df.columns[name].Array()
		result = append(result, rebuildSeries(name, arr, leftIndices, mem))
		arr.Release()
	}

	for _, name := range right.order {
		outName := name
		if df.HasColumn(name) {
			outName = name + "_right"
		}
		arr := right.columns[name].Array()
		result = append(result, rebuildSeries(outName, arr, rightIndices, mem))
		arr.Release()
	}

	return New(result...), nil
}

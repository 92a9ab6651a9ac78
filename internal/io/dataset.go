package io

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"

	"github.com/d-gambino/udacity-data-engineering-capstone/internal/dataframe"
)

// ReadParquetFile reads a single Parquet file into a DataFrame.
func ReadParquetFile(path string, mem memory.Allocator) (*dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	return NewParquetReader(f, mem).Read()
}

// ReadParquetDir reads every .parquet file under dir (sorted, recursive)
// and concatenates them into one DataFrame. The immigration input is a
// directory of part files produced by an upstream conversion job.
func ReadParquetDir(dir string, mem memory.Allocator) (*dataframe.DataFrame, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".parquet") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no parquet files under %s", dir)
	}
	sort.Strings(paths)

	frames := make([]*dataframe.DataFrame, 0, len(paths))
	for _, path := range paths {
		df, err := ReadParquetFile(path, mem)
		if err != nil {
			return nil, err
		}
		frames = append(frames, df)
	}

	if len(frames) == 1 {
		return frames[0], nil
	}
	combined, err := frames[0].Concat(frames[1:]...)
	if err != nil {
		return nil, fmt.Errorf("concatenating part files of %s: %w", dir, err)
	}
	for _, frame := range frames {
		frame.Release()
	}
	return combined, nil
}

// ReadCSVFile reads a CSV file into a DataFrame with the given options.
func ReadCSVFile(path string, options CSVOptions, mem memory.Allocator) (*dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	return NewCSVReader(f, options, mem).Read()
}

// WriteParquetDataset writes a frame as a Parquet dataset directory. With
// partition columns it produces a hive-style layout
// (dir/col=value/part-*.parquet) with the partition columns dropped from
// the files, the same layout the upstream job's partitionBy produced.
// An existing dataset directory is replaced (overwrite semantics).
func WriteParquetDataset(
	df *dataframe.DataFrame, dir string, partitionBy []string, options ParquetOptions,
) error {
	for _, name := range partitionBy {
		if !df.HasColumn(name) {
			return fmt.Errorf("partition column %q not in frame", name)
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing existing dataset %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating dataset dir %s: %w", dir, err)
	}

	if len(partitionBy) == 0 {
		return writePartFile(df, dir, options)
	}

	cols := make([]dataframe.ISeries, len(partitionBy))
	for i, name := range partitionBy {
		col, _ := df.Column(name)
		cols[i] = col
	}

	// Bucket row indices per partition path, keeping first-seen order.
	partitions := make(map[string][]int)
	var order []string
	for row := range df.Len() {
		parts := make([]string, len(partitionBy))
		for c, name := range partitionBy {
			parts[c] = fmt.Sprintf("%s=%s", name, partitionValue(cols[c], row))
		}
		key := filepath.Join(parts...)
		if _, seen := partitions[key]; !seen {
			order = append(order, key)
		}
		partitions[key] = append(partitions[key], row)
	}

	for _, key := range order {
		sub := df.Take(partitions[key]).Drop(partitionBy...)
		partDir := filepath.Join(dir, key)
		if err := os.MkdirAll(partDir, 0o755); err != nil {
			sub.Release()
			return fmt.Errorf("creating partition dir %s: %w", partDir, err)
		}
		err := writePartFile(sub, partDir, options)
		sub.Release()
		if err != nil {
			return err
		}
	}

	return nil
}

// partitionValue renders a partition cell for a directory name. Nulls map
// to the hive default partition name.
func partitionValue(col dataframe.ISeries, row int) string {
	if col.IsNull(row) {
		return "__HIVE_DEFAULT_PARTITION__"
	}
	value := col.GetAsString(row)
	if value == "" {
		return "__HIVE_DEFAULT_PARTITION__"
	}
	// Path separators would splinter the partition directory.
	value = strings.ReplaceAll(value, string(os.PathSeparator), "_")
	return strings.ReplaceAll(value, "/", "_")
}

func writePartFile(df *dataframe.DataFrame, dir string, options ParquetOptions) error {
	name := fmt.Sprintf("part-00000-%s.%s.parquet", uuid.New().String(), options.Compression)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	// Write closes f through the parquet writer; closing again here
	// would fail with "file already closed".
	if err := NewParquetWriter(f, options).Write(df); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

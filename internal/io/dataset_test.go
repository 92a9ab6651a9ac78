package io

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d-gambino/udacity-data-engineering-capstone/internal/dataframe"
	"github.com/d-gambino/udacity-data-engineering-capstone/internal/series"
)

func writeDataset(t *testing.T, df *dataframe.DataFrame, dir string, partitionBy []string) {
	t.Helper()
	require.NoError(t, WriteParquetDataset(df, dir, partitionBy, DefaultParquetOptions()))
}

func listParquetFiles(t *testing.T, dir string) []string {
	t.Helper()
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, err := filepath.Rel(dir, path)
			require.NoError(t, err)
			paths = append(paths, rel)
		}
		return nil
	})
	require.NoError(t, err)
	return paths
}

func TestWriteAndReadUnpartitionedDataset(t *testing.T) {
	df := sampleFrame(t)
	defer df.Release()

	dir := filepath.Join(t.TempDir(), "immigration_fact")
	writeDataset(t, df, dir, nil)

	files := listParquetFiles(t, dir)
	require.Len(t, files, 1)
	assert.Contains(t, files[0], "part-00000-")
	assert.Contains(t, files[0], ".snappy.parquet")

	out, err := ReadParquetDir(dir, memory.NewGoAllocator())
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, 3, out.Len())
	assert.Equal(t, df.Columns(), out.Columns())
}

func TestWritePartitionedDataset(t *testing.T) {
	mem := memory.NewGoAllocator()
	state, err := series.NewWithValidity("state_code", []string{"NY", "CA", "NY"}, nil, mem)
	require.NoError(t, err)
	pop, err := series.NewWithValidity("population", []int64{100, 200, 300}, nil, mem)
	require.NoError(t, err)
	df := dataframe.New(state, pop)
	defer df.Release()

	dir := filepath.Join(t.TempDir(), "us_demographics_dim")
	writeDataset(t, df, dir, []string{"state_code"})

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	assert.ElementsMatch(t, []string{"state_code=NY", "state_code=CA"}, names)

	// Partition columns are dropped from the files
	nyFrame, err := ReadParquetDir(filepath.Join(dir, "state_code=NY"), mem)
	require.NoError(t, err)
	defer nyFrame.Release()
	assert.Equal(t, []string{"population"}, nyFrame.Columns())
	assert.Equal(t, 2, nyFrame.Len())
}

func TestWritePartitionedDatasetNullPartitionValue(t *testing.T) {
	mem := memory.NewGoAllocator()
	state, err := series.NewWithValidity("state_code", []string{""}, []bool{false}, mem)
	require.NoError(t, err)
	pop, err := series.NewWithValidity("population", []int64{1}, nil, mem)
	require.NoError(t, err)
	df := dataframe.New(state, pop)
	defer df.Release()

	dir := t.TempDir()
	writeDataset(t, df, dir, []string{"state_code"})

	_, err = os.Stat(filepath.Join(dir, "state_code=__HIVE_DEFAULT_PARTITION__"))
	assert.NoError(t, err)
}

func TestWriteDatasetOverwrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "calendar_dim")
	stale := filepath.Join(dir, "stale.txt")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	df := sampleFrame(t)
	defer df.Release()
	writeDataset(t, df, dir, nil)

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "previous dataset contents are replaced")
}

func TestWriteDatasetUnknownPartitionColumn(t *testing.T) {
	df := sampleFrame(t)
	defer df.Release()

	err := WriteParquetDataset(df, t.TempDir(), []string{"missing"}, DefaultParquetOptions())
	assert.Error(t, err)
}

func TestReadParquetDirConcatenatesParts(t *testing.T) {
	mem := memory.NewGoAllocator()
	dir := t.TempDir()

	for i, ids := range [][]int64{{1, 2}, {3}} {
		s, err := series.NewWithValidity("cicid", ids, nil, mem)
		require.NoError(t, err)
		df := dataframe.New(s)
		part := filepath.Join(dir, string(rune('a'+i)))
		writeDataset(t, df, part, nil)
		df.Release()
	}

	out, err := ReadParquetDir(dir, mem)
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, 3, out.Len())
}

func TestReadParquetDirEmpty(t *testing.T) {
	_, err := ReadParquetDir(t.TempDir(), memory.NewGoAllocator())
	assert.Error(t, err)
}

func TestReadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.csv")
	require.NoError(t, os.WriteFile(path, []byte("a;b\n1;x\n"), 0o644))

	options := DefaultCSVOptions()
	options.Delimiter = ';'
	df, err := ReadCSVFile(path, options, memory.NewGoAllocator())
	require.NoError(t, err)
	defer df.Release()

	assert.Equal(t, 1, df.Len())
	assert.Equal(t, []string{"a", "b"}, df.Columns())
}

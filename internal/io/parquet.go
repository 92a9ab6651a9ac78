package io

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/d-gambino/udacity-data-engineering-capstone/internal/dataframe"
	"github.com/d-gambino/udacity-data-engineering-capstone/internal/series"
)

// Read reads Parquet data and returns a DataFrame.
func (r *ParquetReader) Read() (*dataframe.DataFrame, error) {
	data, err := io.ReadAll(r.reader)
	if err != nil {
		return nil, fmt.Errorf("reading data: %w", err)
	}
	readerAt := bytes.NewReader(data)

	pqReader, err := file.NewParquetReader(readerAt)
	if err != nil {
		return nil, fmt.Errorf("creating parquet file reader: %w", err)
	}

	arrowReader, err := pqarrow.NewFileReader(pqReader, pqarrow.ArrowReadProperties{}, r.mem)
	if err != nil {
		return nil, fmt.Errorf("creating arrow file reader: %w", err)
	}

	table, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	defer table.Release()

	return r.arrowTableToDataFrame(table)
}

func (r *ParquetReader) arrowTableToDataFrame(table arrow.Table) (*dataframe.DataFrame, error) {
	var seriesList []dataframe.ISeries
	schema := table.Schema()

	for i := 0; i < int(table.NumCols()); i++ {
		column := table.Column(i)
		field := schema.Field(i)

		s, err := r.arrowColumnToSeries(field.Name, column)
		if err != nil {
			return nil, fmt.Errorf("converting column %s: %w", field.Name, err)
		}
		seriesList = append(seriesList, s)
	}

	return dataframe.New(seriesList...), nil
}

// arrowColumnToSeries converts a possibly chunked Arrow column to a
// single-array series, preserving nulls.
func (r *ParquetReader) arrowColumnToSeries(name string, column *arrow.Column) (dataframe.ISeries, error) {
	chunked := column.Data()

	switch column.DataType().ID() {
	case arrow.INT64:
		return convertChunks(name, chunked, r.mem, func(arr arrow.Array, i int) int64 {
			return arr.(*array.Int64).Value(i)
		})
	case arrow.INT32:
		return convertChunks(name, chunked, r.mem, func(arr arrow.Array, i int) int32 {
			return arr.(*array.Int32).Value(i)
		})
	case arrow.FLOAT64:
		return convertChunks(name, chunked, r.mem, func(arr arrow.Array, i int) float64 {
			return arr.(*array.Float64).Value(i)
		})
	case arrow.FLOAT32:
		return convertChunks(name, chunked, r.mem, func(arr arrow.Array, i int) float32 {
			return arr.(*array.Float32).Value(i)
		})
	case arrow.STRING:
		return convertChunks(name, chunked, r.mem, func(arr arrow.Array, i int) string {
			return arr.(*array.String).Value(i)
		})
	case arrow.BOOL:
		return convertChunks(name, chunked, r.mem, func(arr arrow.Array, i int) bool {
			return arr.(*array.Boolean).Value(i)
		})
	default:
		return nil, fmt.Errorf("unsupported Arrow type: %s", column.DataType())
	}
}

// convertChunks flattens the chunks of a column into one typed series.
func convertChunks[T any](
	name string, chunked *arrow.Chunked, mem memory.Allocator,
	getValue func(arrow.Array, int) T,
) (dataframe.ISeries, error) {
	values := make([]T, 0, chunked.Len())
	valid := make([]bool, 0, chunked.Len())

	for _, chunk := range chunked.Chunks() {
		for i := range chunk.Len() {
			if chunk.IsNull(i) {
				var zero T
				values = append(values, zero)
				valid = append(valid, false)
				continue
			}
			values = append(values, getValue(chunk, i))
			valid = append(valid, true)
		}
	}

	return series.NewWithValidity(name, values, valid, mem)
}

// Write writes the DataFrame to Parquet format.
func (w *ParquetWriter) Write(df *dataframe.DataFrame) error {
	table, err := w.dataFrameToArrowTable(df)
	if err != nil {
		return fmt.Errorf("converting DataFrame to Arrow table: %w", err)
	}
	defer table.Release()

	props := parquet.NewWriterProperties(
		parquet.WithCompression(compressionCodec(w.options.Compression)),
		parquet.WithBatchSize(int64(w.options.BatchSize)),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(memory.NewGoAllocator()))

	writer, err := pqarrow.NewFileWriter(table.Schema(), w.writer, props, arrowProps)
	if err != nil {
		return fmt.Errorf("creating file writer: %w", err)
	}

	if err := writer.WriteTable(table, int64(df.Len())); err != nil {
		_ = writer.Close()
		return fmt.Errorf("writing table: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing parquet writer: %w", err)
	}

	return nil
}

func compressionCodec(name string) compress.Compression {
	switch name {
	case "gzip":
		return compress.Codecs.Gzip
	case "lz4":
		return compress.Codecs.Lz4Raw
	case "zstd":
		return compress.Codecs.Zstd
	case "uncompressed":
		return compress.Codecs.Uncompressed
	default:
		return compress.Codecs.Snappy
	}
}

// dataFrameToArrowTable converts a DataFrame to an Arrow table. The
// series arrays are referenced directly, so null slots carry through.
func (w *ParquetWriter) dataFrameToArrowTable(df *dataframe.DataFrame) (arrow.Table, error) {
	fields := make([]arrow.Field, 0, df.Width())
	columns := make([]arrow.Column, 0, df.Width())

	for _, colName := range df.Columns() {
		col, exists := df.Column(colName)
		if !exists {
			continue
		}

		arr := col.Array()
		field := arrow.Field{Name: colName, Type: arr.DataType(), Nullable: true}
		fields = append(fields, field)

		chunked := arrow.NewChunked(arr.DataType(), []arrow.Array{arr})
		arr.Release()
		column := arrow.NewColumn(field, chunked)
		columns = append(columns, *column)
	}

	schema := arrow.NewSchema(fields, nil)
	return array.NewTable(schema, columns, int64(df.Len())), nil
}

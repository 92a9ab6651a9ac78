package io

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/d-gambino/udacity-data-engineering-capstone/internal/dataframe"
	"github.com/d-gambino/udacity-data-engineering-capstone/internal/series"
)

const (
	trueStr  = "true"
	falseStr = "false"

	typeBool   = "bool"
	typeInt    = "int"
	typeFloat  = "float"
	typeString = "string"
)

// Read reads CSV data and returns a DataFrame. Column types are inferred
// from the data; empty cells in non-string columns become nulls so the
// cleaning stage can drop or report them.
func (r *CSVReader) Read() (*dataframe.DataFrame, error) {
	csvReader := csv.NewReader(r.reader)
	csvReader.Comma = r.options.Delimiter
	csvReader.Comment = r.options.Comment
	csvReader.TrimLeadingSpace = r.options.TrimLeadingSpace
	csvReader.FieldsPerRecord = -1 // ragged rows pad with nulls

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}

	if len(records) == 0 {
		return dataframe.New(), nil
	}

	var headers []string
	var dataRows [][]string

	if r.options.Header {
		headers = records[0]
		dataRows = records[1:]
	} else {
		numCols := len(records[0])
		headers = make([]string, numCols)
		for i := range numCols {
			headers[i] = fmt.Sprintf("column_%d", i)
		}
		dataRows = records
	}

	if len(dataRows) == 0 {
		var emptySeries []dataframe.ISeries
		for _, header := range headers {
			s, err := series.NewWithValidity(header, []string{}, nil, r.mem)
			if err != nil {
				return nil, fmt.Errorf("creating empty series for column %s: %w", header, err)
			}
			emptySeries = append(emptySeries, s)
		}
		return dataframe.New(emptySeries...), nil
	}

	// Transpose to columns
	numCols := len(headers)
	columns := make([][]string, numCols)
	for i := range numCols {
		columns[i] = make([]string, len(dataRows))
		for j, row := range dataRows {
			if i < len(row) {
				columns[i][j] = row[i]
			}
		}
	}

	var seriesList []dataframe.ISeries
	for i, header := range headers {
		s, err := r.createSeriesFromStrings(header, columns[i])
		if err != nil {
			return nil, fmt.Errorf("creating series for column %s: %w", header, err)
		}
		seriesList = append(seriesList, s)
	}

	return dataframe.New(seriesList...), nil
}

func (r *CSVReader) createSeriesFromStrings(name string, data []string) (dataframe.ISeries, error) {
	switch r.inferDataType(data) {
	case typeBool:
		return r.createBoolSeries(name, data)
	case typeInt:
		return r.createIntSeries(name, data)
	case typeFloat:
		return r.createFloatSeries(name, data)
	default:
		return series.NewWithValidity(name, data, nil, r.mem)
	}
}

// inferDataType determines the most appropriate data type for the given
// string data. Empty cells are excluded from inference.
func (r *CSVReader) inferDataType(data []string) string {
	canBeInt := true
	canBeFloat := true
	canBeBool := true
	hasNonEmptyValue := false

	for _, value := range data {
		if value == "" {
			continue
		}
		hasNonEmptyValue = true

		if canBeBool {
			lower := strings.ToLower(value)
			if lower != trueStr && lower != falseStr {
				canBeBool = false
			}
		}

		if canBeInt {
			if _, err := strconv.ParseInt(value, 10, 64); err != nil {
				canBeInt = false
			}
		}

		if canBeFloat {
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				canBeFloat = false
			}
		}
	}

	if !hasNonEmptyValue {
		return typeString
	}
	if canBeBool {
		return typeBool
	}
	if canBeInt {
		return typeInt
	}
	if canBeFloat {
		return typeFloat
	}
	return typeString
}

func (r *CSVReader) createBoolSeries(name string, data []string) (dataframe.ISeries, error) {
	boolData := make([]bool, len(data))
	valid := make([]bool, len(data))
	for i, value := range data {
		if value == "" {
			continue
		}
		boolData[i] = strings.EqualFold(value, trueStr)
		valid[i] = true
	}
	return series.NewWithValidity(name, boolData, valid, r.mem)
}

func (r *CSVReader) createIntSeries(name string, data []string) (dataframe.ISeries, error) {
	intData := make([]int64, len(data))
	valid := make([]bool, len(data))
	for i, value := range data {
		if value == "" {
			continue
		}
		val, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}
		intData[i] = val
		valid[i] = true
	}
	return series.NewWithValidity(name, intData, valid, r.mem)
}

func (r *CSVReader) createFloatSeries(name string, data []string) (dataframe.ISeries, error) {
	floatData := make([]float64, len(data))
	valid := make([]bool, len(data))
	for i, value := range data {
		if value == "" {
			continue
		}
		val, err := strconv.ParseFloat(value, 64)
		if err != nil {
			continue
		}
		floatData[i] = val
		valid[i] = true
	}
	return series.NewWithValidity(name, floatData, valid, r.mem)
}

// Write writes the DataFrame to CSV format. Nulls render as empty cells.
func (w *CSVWriter) Write(df *dataframe.DataFrame) error {
	csvWriter := csv.NewWriter(w.writer)
	csvWriter.Comma = w.options.Delimiter
	defer csvWriter.Flush()

	if w.options.Header {
		if err := csvWriter.Write(df.Columns()); err != nil {
			return fmt.Errorf("writing headers: %w", err)
		}
	}

	names := df.Columns()
	for i := range df.Len() {
		row := make([]string, len(names))
		for j, colName := range names {
			column, exists := df.Column(colName)
			if !exists {
				continue
			}
			row[j] = column.GetAsString(i)
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}

	return csvWriter.Error()
}

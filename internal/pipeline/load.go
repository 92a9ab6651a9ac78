package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/d-gambino/udacity-data-engineering-capstone/internal/config"
	etlio "github.com/d-gambino/udacity-data-engineering-capstone/internal/io"
)

// tablePartitions fixes the partition layout of each output table. The
// calendar splits by time hierarchy and demographics by state; the
// remaining tables are small enough for a single part file.
var tablePartitions = map[string][]string{
	"calendar_dim":        {"year", "month", "week"},
	"us_demographics_dim": {"state_code"},
}

// Load writes the star-schema tables as Parquet datasets under the
// output directory, replacing any previous run's output.
func Load(tables *Tables, output config.OutputConfig) error {
	options := etlio.ParquetOptions{
		Compression: output.Compression,
		BatchSize:   output.BatchSize,
	}

	for _, entry := range tables.byName() {
		dir := filepath.Join(output.Dir, entry.name)
		if err := etlio.WriteParquetDataset(entry.df, dir, tablePartitions[entry.name], options); err != nil {
			return fmt.Errorf("writing %s: %w", entry.name, err)
		}
	}

	return nil
}

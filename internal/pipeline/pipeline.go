// Package pipeline implements the I-94 batch ETL: extraction of the raw
// immigration, temperature, demographic and airport sources, label
// decoding and cleaning, the star-schema dimension and fact builds, data
// quality validation and the Parquet load.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/d-gambino/udacity-data-engineering-capstone/internal/config"
)

// Runner executes the pipeline end to end for one batch.
type Runner struct {
	cfg config.Config
	log *slog.Logger
	mem memory.Allocator
}

// NewRunner creates a Runner for the given configuration.
func NewRunner(cfg config.Config, log *slog.Logger) *Runner {
	return &Runner{
		cfg: cfg,
		log: log,
		mem: memory.NewGoAllocator(),
	}
}

// RunStats summarizes a completed run.
type RunStats struct {
	FactRows         int
	CalendarRows     int
	CountryRows      int
	AirportRows      int
	DemographicsRows int
	Quality          *QualityReport
	Duration         time.Duration
}

// Run executes all stages in order. The context is consulted between
// stages; the frame operations themselves are not interruptible.
func (r *Runner) Run(ctx context.Context) (*RunStats, error) {
	start := time.Now()

	r.log.Info("extracting sources",
		"immigration", r.cfg.Inputs.ImmigrationDir,
		"temperature", r.cfg.Inputs.TemperatureCSV,
		"demographics", r.cfg.Inputs.DemographicsCSV,
		"airports", r.cfg.Inputs.AirportsCSV)
	sources, err := Extract(r.cfg.Inputs, r.mem)
	if err != nil {
		return nil, err
	}
	defer sources.Release()
	r.log.Debug("extracted sources",
		"immigration_rows", sources.Immigration.Len(),
		"temperature_rows", sources.Temperature.Len(),
		"demographics_rows", sources.Demographics.Len(),
		"airport_rows", sources.Airports.Len())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.log.Info("decoding I-94 label fields")
	decoded, err := DecodeLabels(sources.Immigration, sources.Labels)
	if err != nil {
		return nil, err
	}
	defer decoded.Release()

	r.log.Info("cleaning immigration data")
	immigration, err := CleanImmigration(decoded)
	if err != nil {
		return nil, err
	}
	defer immigration.Release()
	r.log.Debug("cleaned immigration data", "rows", immigration.Len())

	r.log.Info("cleaning temperature data")
	temperature, err := CleanTemperature(sources.Temperature)
	if err != nil {
		return nil, err
	}
	defer temperature.Release()
	r.log.Debug("cleaned temperature data", "rows", temperature.Len())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tables := &Tables{}
	defer tables.Release()

	r.log.Info("building calendar_dim")
	if tables.Calendar, err = BuildCalendarDim(immigration); err != nil {
		return nil, err
	}
	r.log.Info("building country_dim")
	if tables.Country, err = BuildCountryDim(temperature); err != nil {
		return nil, err
	}
	r.log.Info("building us_airport_dim")
	if tables.Airport, err = BuildAirportDim(sources.Airports); err != nil {
		return nil, err
	}
	r.log.Info("building us_demographics_dim")
	if tables.Demographics, err = BuildDemographicsDim(sources.Demographics); err != nil {
		return nil, err
	}

	r.log.Info("building immigration_fact")
	if tables.Fact, err = BuildFact(immigration, tables.Country, tables.Airport, tables.Demographics); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.log.Info("running data quality checks")
	report := RunQualityChecks(tables, r.cfg.Quality)
	for _, result := range report.Results {
		if result.Passed {
			r.log.Debug("quality check passed",
				"table", result.Table, "check", result.Check, "detail", result.Detail)
			continue
		}
		r.log.Error("quality check failed",
			"table", result.Table, "check", result.Check, "detail", result.Detail)
	}
	if err := report.Err(); err != nil {
		return nil, err
	}

	r.log.Info("writing output tables", "dir", r.cfg.Output.Dir,
		"compression", r.cfg.Output.Compression)
	if err := Load(tables, r.cfg.Output); err != nil {
		return nil, err
	}

	stats := &RunStats{
		FactRows:         tables.Fact.Len(),
		CalendarRows:     tables.Calendar.Len(),
		CountryRows:      tables.Country.Len(),
		AirportRows:      tables.Airport.Len(),
		DemographicsRows: tables.Demographics.Len(),
		Quality:          report,
		Duration:         time.Since(start),
	}
	r.log.Info("pipeline complete",
		"fact_rows", stats.FactRows,
		"calendar_rows", stats.CalendarRows,
		"country_rows", stats.CountryRows,
		"airport_rows", stats.AirportRows,
		"demographics_rows", stats.DemographicsRows,
		"duration", stats.Duration.String())

	return stats, nil
}

// String renders the stats for CLI output.
func (s *RunStats) String() string {
	return fmt.Sprintf(
		"fact=%d calendar=%d country=%d airport=%d demographics=%d duration=%s",
		s.FactRows, s.CalendarRows, s.CountryRows, s.AirportRows, s.DemographicsRows,
		s.Duration.Round(time.Millisecond))
}

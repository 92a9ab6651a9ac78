package pipeline

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/d-gambino/udacity-data-engineering-capstone/internal/config"
	"github.com/d-gambino/udacity-data-engineering-capstone/internal/dataframe"
	etlio "github.com/d-gambino/udacity-data-engineering-capstone/internal/io"
	"github.com/d-gambino/udacity-data-engineering-capstone/internal/saslabels"
)

// Sources holds the raw staging frames read from the four inputs plus the
// parsed SAS label descriptions.
type Sources struct {
	Immigration  *dataframe.DataFrame
	Temperature  *dataframe.DataFrame
	Demographics *dataframe.DataFrame
	Airports     *dataframe.DataFrame
	Labels       *saslabels.Labels
}

// Release releases all staged frames.
func (s *Sources) Release() {
	for _, df := range []*dataframe.DataFrame{s.Immigration, s.Temperature, s.Demographics, s.Airports} {
		if df != nil {
			df.Release()
		}
	}
}

// Extract reads the raw sources into staging frames. Airports are
// restricted to US entries at ingest; nothing else references foreign
// airports downstream.
func Extract(inputs config.InputsConfig, mem memory.Allocator) (*Sources, error) {
	immigration, err := etlio.ReadParquetDir(inputs.ImmigrationDir, mem)
	if err != nil {
		return nil, fmt.Errorf("extracting immigration data: %w", err)
	}

	temperature, err := etlio.ReadCSVFile(inputs.TemperatureCSV, etlio.DefaultCSVOptions(), mem)
	if err != nil {
		immigration.Release()
		return nil, fmt.Errorf("extracting temperature data: %w", err)
	}

	demographicsOpts := etlio.DefaultCSVOptions()
	demographicsOpts.Delimiter = ';'
	demographics, err := etlio.ReadCSVFile(inputs.DemographicsCSV, demographicsOpts, mem)
	if err != nil {
		immigration.Release()
		temperature.Release()
		return nil, fmt.Errorf("extracting demographics data: %w", err)
	}

	allAirports, err := etlio.ReadCSVFile(inputs.AirportsCSV, etlio.DefaultCSVOptions(), mem)
	if err != nil {
		immigration.Release()
		temperature.Release()
		demographics.Release()
		return nil, fmt.Errorf("extracting airport data: %w", err)
	}
	airports, err := allAirports.FilterStringEqual("iso_country", "US")
	allAirports.Release()
	if err != nil {
		immigration.Release()
		temperature.Release()
		demographics.Release()
		return nil, fmt.Errorf("filtering airports to US: %w", err)
	}

	labels, err := saslabels.ParseFile(inputs.SASLabels)
	if err != nil {
		immigration.Release()
		temperature.Release()
		demographics.Release()
		airports.Release()
		return nil, fmt.Errorf("parsing SAS labels: %w", err)
	}

	return &Sources{
		Immigration:  immigration,
		Temperature:  temperature,
		Demographics: demographics,
		Airports:     airports,
		Labels:       labels,
	}, nil
}

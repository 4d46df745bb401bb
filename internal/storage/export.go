package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/indmach/internal/dynamo"
)

type ExportData struct {
	ID       string               `json:"id,omitempty"`
	Model    string               `json:"model"`
	Dt       float64              `json:"dt"`
	Duration float64              `json:"duration"`
	Steps    int                  `json:"steps"`
	Series   map[string][]float64 `json:"series"`
	Metrics  map[string]float64   `json:"metrics"`
	Outputs  map[string]float64   `json:"outputs,omitempty"`
}

// ExportJSON writes a run as one JSON document with a column per series.
func ExportJSON(w io.Writer, meta *RunMetadata, samples []dynamo.Sample) error {
	result := &dynamo.Result{Samples: samples}
	data := ExportData{
		ID:       meta.ID,
		Model:    meta.Model,
		Dt:       meta.Dt,
		Duration: meta.Duration,
		Steps:    len(samples),
		Series:   make(map[string][]float64, len(dynamo.SeriesNames)),
		Metrics:  meta.Metrics,
		Outputs:  meta.Outputs,
	}
	for _, name := range dynamo.SeriesNames {
		col, err := result.Series(name)
		if err != nil {
			return err
		}
		data.Series[name] = col
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

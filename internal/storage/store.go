package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/indmach/internal/config"
	"github.com/san-kum/indmach/internal/dynamo"
)

const (
	metadataFile = "metadata.json"
	samplesFile  = "samples.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Model     string             `json:"model"`
	Preset    string             `json:"preset,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Dt        float64            `json:"dt"`
	Duration  float64            `json:"duration"`
	Steps     int                `json:"steps"`
	Config    *config.Config     `json:"config,omitempty"`
	Metrics   map[string]float64 `json:"metrics"`
	Outputs   map[string]float64 `json:"outputs"`
	Errors    []string           `json:"errors,omitempty"`
}

// Save writes a run under a fresh ID and returns the ID.
func (s *Store) Save(cfg *config.Config, preset string, result *dynamo.Result) (string, error) {
	runID := uuid.NewString()
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Model:     cfg.Model,
		Preset:    preset,
		Timestamp: time.Now(),
		Dt:        cfg.Dt,
		Duration:  cfg.Duration,
		Steps:     result.StepsTaken,
		Config:    cfg,
		Metrics:   finite(result.Metrics),
		Outputs:   finite(result.Outputs),
	}
	for _, err := range result.Errors {
		meta.Errors = append(meta.Errors, err.Error())
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeSamples(filepath.Join(runDir, samplesFile), result.Samples); err != nil {
		return "", err
	}
	return runID, nil
}

// finite drops NaN and Inf entries, which JSON cannot carry.
func finite(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var sampleHeader = append(append([]string{}, dynamo.SeriesNames...), "iterations")

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeSamples(path string, samples []dynamo.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(sampleHeader); err != nil {
		return err
	}
	for _, s := range samples {
		row := []string{
			formatFloat(s.T),
			formatFloat(s.Slip),
			formatFloat(s.Speed),
			formatFloat(s.V1),
			formatFloat(s.Is1),
			formatFloat(s.Is2),
			formatFloat(s.E1),
			formatFloat(s.P),
			formatFloat(s.Q),
			formatFloat(s.Losses),
			strconv.Itoa(s.Iterations),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the stored runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadSamples(runID string) ([]dynamo.Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, samplesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	if len(records) < 2 {
		return []dynamo.Sample{}, nil
	}

	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[name] = i
	}

	samples := make([]dynamo.Sample, 0, len(records)-1)
	for line, record := range records[1:] {
		get := func(name string) (float64, error) {
			i, ok := col[name]
			if !ok {
				return 0, nil
			}
			return strconv.ParseFloat(record[i], 64)
		}

		var s dynamo.Sample
		fields := []struct {
			name string
			dst  *float64
		}{
			{"t", &s.T}, {"slip", &s.Slip}, {"speed", &s.Speed}, {"v1", &s.V1},
			{"is1", &s.Is1}, {"is2", &s.Is2}, {"e1", &s.E1}, {"p", &s.P},
			{"q", &s.Q}, {"losses", &s.Losses},
		}
		for _, f := range fields {
			v, err := get(f.name)
			if err != nil {
				return nil, fmt.Errorf("run %s line %d column %s: %w", runID, line+2, f.name, err)
			}
			*f.dst = v
		}
		if i, ok := col["iterations"]; ok {
			s.Iterations, _ = strconv.Atoi(record[i])
		}
		samples = append(samples, s)
	}
	return samples, nil
}

// Delete removes a stored run.
func (s *Store) Delete(runID string) error {
	dir := filepath.Join(s.baseDir, runID)
	if _, err := os.Stat(filepath.Join(dir, metadataFile)); err != nil {
		return err
	}
	return os.RemoveAll(dir)
}

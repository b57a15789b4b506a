package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/cpuid/v2"
	"gopkg.in/yaml.v3"
)

// SweepRecord is the persisted outcome of one sweep over problem sizes. Slices indexed by
// size follow NodeCountList.
type SweepRecord struct {
	RunID string `yaml:"run_id"`
	CPU   string `yaml:"cpu"`

	Time        []float64     `yaml:"time"`        // wall seconds per size
	Expectation []float64     `yaml:"expectation"` // final objective per size
	Parameters  [][][]float64 `yaml:"parameters"`  // [size][gamma|beta][p]

	NodeCountList []int `yaml:"node_count_list"`
	MaxIterations int   `yaml:"max_iterations"`
	P             int   `yaml:"p"`
	NodeDegree    int   `yaml:"node_degree"`
	ColorCount    int   `yaml:"color_count"`

	Strategy     string      `yaml:"strategy"`
	Method       string      `yaml:"method"`
	Converged    []bool      `yaml:"converged"`
	Trajectories [][]float64 `yaml:"trajectories,omitempty"`
}

// hardwareStamp names the machine the timings were taken on.
func hardwareStamp() string {
	brand := cpuid.CPU.BrandName
	if brand == "" {
		brand = "unknown cpu"
	}
	return fmt.Sprintf("%s (%d logical cores)", brand, cpuid.CPU.LogicalCores)
}

// RecordFileName returns the record name for a sweep, single-size sweeps carry their size.
func RecordFileName(r *SweepRecord) string {
	if len(r.NodeCountList) == 1 {
		return fmt.Sprintf("graphcolor_wtensor_p%d_nodesnum%d_nd%d_cln%d.yaml", r.P, r.NodeCountList[0], r.NodeDegree, r.ColorCount)
	}
	return fmt.Sprintf("graphcolor_wtensor_p%d_nd%d_cln%d.yaml", r.P, r.NodeDegree, r.ColorCount)
}

// SaveRecord writes r as YAML under dir, creating dir if needed, and returns the file path.
func SaveRecord(dir string, r *SweepRecord) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	data, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	path := filepath.Join(dir, RecordFileName(r))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write record: %w", err)
	}
	return path, nil
}

// LoadRecord reads a record written by SaveRecord.
func LoadRecord(path string) (*SweepRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r SweepRecord
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", path, err)
	}
	return &r, nil
}

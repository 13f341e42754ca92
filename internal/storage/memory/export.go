package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanetlab/vanetsim/pkg/core"
)

const (
	kindTick     = "tick"
	kindSnapshot = "snapshot"
)

// streamLine is one line of the JSON Lines stream.
type streamLine struct {
	Kind     string                `json:"kind"`
	Tick     *core.AnalyticsRecord `json:"tick,omitempty"`
	Snapshot *core.TickSnapshot    `json:"snapshot,omitempty"`
}

func (b *Backend) writeLine(line streamLine) error {
	if b.streamWriter == nil {
		return nil
	}
	data, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("failed to encode stream line: %w", err)
	}
	data = append(data, '\n')
	if _, err := b.streamWriter.Write(data); err != nil {
		return fmt.Errorf("failed to write stream line: %w", err)
	}
	return nil
}

func (b *Backend) flushStream() error {
	if b.streamWriter == nil {
		return nil
	}
	if err := b.streamWriter.Flush(); err != nil {
		return fmt.Errorf("failed to flush stream: %w", err)
	}
	return nil
}

func (b *Backend) closeStream() error {
	if b.stream == nil {
		return nil
	}
	flushErr := b.flushStream()
	closeErr := b.stream.Close()
	b.stream = nil
	b.streamWriter = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// exportJSON writes the analytics array in the plotting format.
func (b *Backend) exportJSON() error {
	var filename string
	if b.cfg.CompressOutput {
		filename = fileStem(b.run) + ".json.gz"
	} else {
		filename = fileStem(b.run) + ".json"
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	records := b.records
	if records == nil {
		records = []core.AnalyticsRecord{}
	}

	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, records); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, records); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func writeGzipJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(v); err != nil {
		gz.Close()
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return nil
}

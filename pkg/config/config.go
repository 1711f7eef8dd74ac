// Package config loads the YAML file shared by the chronote commands.
//
//	store: setTimeoutByParts
//	parts: 4
//	work: 1133ms
//	overhead: 97ms
//	instant_delay: 200ms
//	addr: ":8080"
//
// Missing keys keep their defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/chronote/pkg/core"
	"github.com/aretw0/chronote/pkg/store"
)

// DefaultAddr is where the websocket server listens.
const DefaultAddr = ":8080"

// File is the on-disk configuration.
type File struct {
	Store        core.StrategyKind `yaml:"store"`
	Parts        int               `yaml:"parts,omitempty"`
	Work         time.Duration     `yaml:"work"`
	Overhead     time.Duration     `yaml:"overhead"`
	InstantDelay time.Duration     `yaml:"instant_delay"`
	Addr         string            `yaml:"addr,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() File {
	return File{
		Store:        core.KindSync,
		Parts:        4,
		Work:         store.DefaultWork,
		Overhead:     store.DefaultOverhead,
		InstantDelay: store.DefaultInstantDelay,
		Addr:         DefaultAddr,
	}
}

// Simulator returns the simulated work durations.
func (f File) Simulator() store.Simulator {
	return store.Simulator{Work: f.Work, Overhead: f.Overhead}
}

// Validate checks values that cannot be clamped. The store kind is not
// checked here; an unknown kind leaves the chronote without a strategy.
func (f File) Validate() error {
	if f.Parts < 0 {
		return fmt.Errorf("%w: %d", core.ErrInvalidParts, f.Parts)
	}
	if f.Work < 0 || f.Overhead < 0 || f.InstantDelay < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}

// Parse decodes YAML on top of the defaults.
func Parse(data []byte) (File, error) {
	f := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := f.Validate(); err != nil {
		return File{}, fmt.Errorf("invalid config: %w", err)
	}
	return f, nil
}

// Load reads and parses the file at path.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Save writes f to path atomically.
func Save(path string, f File) error {
	if err := f.Validate(); err != nil {
		return err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return writeFileAtomic(path, buf.Bytes(), 0o644)
}

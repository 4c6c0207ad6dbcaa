package types

import (
	"errors"
	"time"
)

// Config holds store selection and parameters for Shelf.Attach.
type Config struct {
	Store        string        `json:"store" yaml:"store"`
	DataDir      string        `json:"data_dir" yaml:"data_dir"`
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`
}

// Supported persistent store names.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// DefaultPollInterval is the change poller period used when Config leaves
// PollInterval at zero.
const DefaultPollInterval = 2 * time.Second

// Config validation errors.
var (
	ErrStoreEmpty          = errors.New("store must not be empty")
	ErrStoreUnknown        = errors.New("unknown store")
	ErrPollIntervalInvalid = errors.New("poll interval must not be negative")
)

// knownStores lists the stores that Validate accepts.
var knownStores = map[string]bool{
	StoreSQLite: true,
	StoreMemory: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Store == "" {
		return ErrStoreEmpty
	}
	if !knownStores[c.Store] {
		return ErrStoreUnknown
	}
	if c.PollInterval < 0 {
		return ErrPollIntervalInvalid
	}
	return nil
}

// GetPollInterval returns the configured interval, or DefaultPollInterval
// when none was set.
func (c Config) GetPollInterval() time.Duration {
	if c.PollInterval == 0 {
		return DefaultPollInterval
	}
	return c.PollInterval
}

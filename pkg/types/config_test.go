package types

import (
	"errors"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty store returns ErrStoreEmpty",
			config:  Config{Store: "", DataDir: "/tmp/data"},
			wantErr: ErrStoreEmpty,
		},
		{
			name:    "unknown store returns ErrStoreUnknown",
			config:  Config{Store: "postgres", DataDir: "/tmp/data"},
			wantErr: ErrStoreUnknown,
		},
		{
			name:    "negative poll interval returns ErrPollIntervalInvalid",
			config:  Config{Store: StoreMemory, PollInterval: -time.Second},
			wantErr: ErrPollIntervalInvalid,
		},
		{
			name:    "valid sqlite config",
			config:  Config{Store: StoreSQLite, DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "sqlite with empty DataDir is valid at config level",
			config:  Config{Store: StoreSQLite, DataDir: ""},
			wantErr: nil,
		},
		{
			name:    "memory store ignores DataDir",
			config:  Config{Store: StoreMemory, PollInterval: 50 * time.Millisecond},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigGetPollInterval(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		want     time.Duration
	}{
		{"zero uses default", 0, DefaultPollInterval},
		{"explicit interval", 250 * time.Millisecond, 250 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Config{Store: StoreMemory, PollInterval: tt.interval}
			if got := c.GetPollInterval(); got != tt.want {
				t.Errorf("GetPollInterval() = %v, want %v", got, tt.want)
			}
		})
	}
}

package configuration

import (
	"fmt"

	"social-scheduler/domain/model"
)

// MinEncryptionKeyLength is the shortest accepted master key, in bytes.
const MinEncryptionKeyLength = 32

// Validate checks the settings the process cannot run without.
func Validate(c *Config) error {
	if c.Encryption.Key == "" {
		return fmt.Errorf("%w: ENCRYPTION_KEY is not set", model.ErrConfiguration)
	}
	if len(c.Encryption.Key) < MinEncryptionKeyLength {
		return fmt.Errorf("%w: ENCRYPTION_KEY must be at least %d bytes", model.ErrConfiguration, MinEncryptionKeyLength)
	}
	s := c.Scheduler
	if s.IntervalSeconds <= 0 || s.MaxConcurrency <= 0 || s.MaxRetries <= 0 || s.BatchSize <= 0 {
		return fmt.Errorf("%w: scheduler interval, concurrency, retries and batch size must be positive", model.ErrConfiguration)
	}
	if s.PublishTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: scheduler publish timeout must be positive", model.ErrConfiguration)
	}
	switch c.VerifierStore.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("%w: unknown verifier store backend %q", model.ErrConfiguration, c.VerifierStore.Backend)
	}
	return nil
}

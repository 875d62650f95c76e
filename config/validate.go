package config

import (
	"errors"
	"fmt"
)

// ErrInvalid 用于参数验证错误。
type ErrInvalid string

func (e ErrInvalid) Error() string { return string(e) }

// Validate ensures required fields are present and in range.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if len(cfg.Venues) == 0 {
		return errors.New("venues config is required")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		return ErrInvalid("metrics.addr is required when metrics.enabled")
	}

	r := cfg.Routing
	if r.ProfileStalenessSec < 0 {
		return ErrInvalid("routing.profileStalenessSec must be >= 0")
	}
	if r.EWMAAlpha < 0 || r.EWMAAlpha > 1 {
		return ErrInvalid("routing.ewmaAlpha must be in [0, 1]")
	}
	if r.Epsilon < 0 {
		return ErrInvalid("routing.epsilon must be >= 0")
	}
	if r.LargeOrderRatio < 0 {
		return ErrInvalid("routing.largeOrderRatio must be >= 0")
	}
	if r.MaxSplitVenues < 0 {
		return ErrInvalid("routing.maxSplitVenues must be >= 0")
	}
	if r.DispatchTimeoutMs < 0 {
		return ErrInvalid("routing.dispatchTimeoutMs must be >= 0")
	}
	// 部分权重表无法回退到内置表，要么全配要么不配
	if len(r.Weights) > 0 {
		if err := r.Weights.Validate(); err != nil {
			return fmt.Errorf("routing.weights: %w", err)
		}
	}

	if cfg.Feedback.Buffer < 0 {
		return ErrInvalid("feedback.buffer must be >= 0")
	}

	if err := validateVenue("defaults", cfg.Defaults); err != nil {
		return err
	}
	for id, vc := range cfg.Venues {
		if err := validateVenue(id, vc); err != nil {
			return err
		}
	}
	return nil
}

func validateVenue(id string, vc VenueConfig) error {
	if vc.TimeoutMs < 0 {
		return fmt.Errorf("venue %s timeoutMs must be >= 0", id)
	}
	if vc.Retry.MaxAttempts < 0 {
		return fmt.Errorf("venue %s retry.maxAttempts must be >= 0", id)
	}
	if vc.Retry.BackoffMs < 0 {
		return fmt.Errorf("venue %s retry.backoffMs must be >= 0", id)
	}
	if vc.RateLimit.RatePerSec < 0 || vc.RateLimit.Burst < 0 {
		return fmt.Errorf("venue %s rateLimit must be >= 0", id)
	}
	b := vc.Breaker
	if b.WindowSize < 0 || b.MinCalls < 0 || b.HalfOpenSuccesses < 0 || b.HalfOpenMaxCalls < 0 {
		return fmt.Errorf("venue %s breaker counts must be >= 0", id)
	}
	if b.FailureThreshold < 0 || b.FailureThreshold > 1 {
		return fmt.Errorf("venue %s breaker.failureThreshold must be in [0, 1]", id)
	}
	if b.OpenTimeoutSec < 0 {
		return fmt.Errorf("venue %s breaker.openTimeoutSec must be >= 0", id)
	}
	return nil
}

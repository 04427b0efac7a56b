package rag

import "fmt"

// Policy holds the tunable thresholds of the task classifier.
type Policy struct {
	// AmberThresholdDays: an open task with total float at or below this is AMBER.
	AmberThresholdDays int `yaml:"amber_threshold_days" json:"amberThresholdDays"`
	// GateLookaheadDays: how close to its due date a gate with unmet
	// criteria has to be before it turns AMBER.
	GateLookaheadDays int `yaml:"gate_lookahead_days" json:"gateLookaheadDays"`
	// GateCriteriaEscalation enables the gate criteria rule. Off by default.
	GateCriteriaEscalation bool `yaml:"gate_criteria_escalation" json:"gateCriteriaEscalation"`
}

// DefaultPolicy returns the default thresholds.
func DefaultPolicy() Policy {
	return Policy{
		AmberThresholdDays:     3,
		GateLookaheadDays:      7,
	}
}

// Validate checks that the thresholds are usable.
func (p Policy) Validate() error {
	if p.AmberThresholdDays < 0 {
		return fmt.Errorf("amber_threshold_days must be >= 0, got %d", p.AmberThresholdDays)
	}
	if p.GateLookaheadDays < 0 {
		return fmt.Errorf("gate_lookahead_days must be >= 0, got %d", p.GateLookaheadDays)
	}
	return nil
}

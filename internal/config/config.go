// Package config loads the policy thresholds that drive deck validation and
// slide analysis. Values come from an optional YAML policy file and are then
// overridden by environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Lllllllleong/deckscreen/internal/gcp"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Policy holds every injected threshold. Nothing downstream reads globals.
type Policy struct {
	AllowedFormats         []string      `yaml:"allowed_formats"`
	MaxSizeMB              float64       `yaml:"max_size_mb"`
	MaxSlides              int           `yaml:"max_slides"`
	MaxBulletPoints        int           `yaml:"max_bullet_points"`
	ComplianceThreshold    float64       `yaml:"compliance_threshold"`
	MaxConcurrentJudgments int           `yaml:"max_concurrent_judgments"`
	MaxRetries             int           `yaml:"max_retries"`
	JudgmentTimeout        time.Duration `yaml:"judgment_timeout"`
	RetryBackoff           time.Duration `yaml:"retry_backoff"`
}

// DefaultPolicy mirrors the limits portals were promised: PDF and PPTX only,
// 50 MB, 30 slides, 10 bullet points across the deck and a 0.7 compliance bar.
func DefaultPolicy() Policy {
	return Policy{
		AllowedFormats:         []string{".pdf", ".pptx"},
		MaxSizeMB:              50,
		MaxSlides:              30,
		MaxBulletPoints:        10,
		ComplianceThreshold:    0.7,
		MaxConcurrentJudgments: 5,
		MaxRetries:             3,
		JudgmentTimeout:        60 * time.Second,
		RetryBackoff:           time.Second,
	}
}

// Validate rejects thresholds the pipeline cannot run with.
func (p Policy) Validate() error {
	var errs []error
	if len(p.AllowedFormats) == 0 {
		errs = append(errs, errors.New("allowed_formats must not be empty"))
	}
	if p.MaxSizeMB <= 0 {
		errs = append(errs, fmt.Errorf("max_size_mb must be positive, got %v", p.MaxSizeMB))
	}
	if p.MaxSlides <= 0 {
		errs = append(errs, fmt.Errorf("max_slides must be positive, got %d", p.MaxSlides))
	}
	if p.MaxBulletPoints < 0 {
		errs = append(errs, fmt.Errorf("max_bullet_points must not be negative, got %d", p.MaxBulletPoints))
	}
	if p.ComplianceThreshold < 0 || p.ComplianceThreshold > 1 {
		errs = append(errs, fmt.Errorf("compliance_threshold must be within [0,1], got %v", p.ComplianceThreshold))
	}
	if p.MaxConcurrentJudgments < 1 {
		errs = append(errs, fmt.Errorf("max_concurrent_judgments must be at least 1, got %d", p.MaxConcurrentJudgments))
	}
	if p.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("max_retries must be at least 1, got %d", p.MaxRetries))
	}
	if p.JudgmentTimeout <= 0 {
		errs = append(errs, fmt.Errorf("judgment_timeout must be positive, got %s", p.JudgmentTimeout))
	}
	if p.RetryBackoff < 0 {
		errs = append(errs, fmt.Errorf("retry_backoff must not be negative, got %s", p.RetryBackoff))
	}
	return errors.Join(errs...)
}

// normalizeFormats lower-cases extensions and makes sure each has a leading dot.
func normalizeFormats(in []string) []string {
	out := make([]string, 0, len(in))
	for _, f := range in {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		if !strings.HasPrefix(f, ".") {
			f = "." + f
		}
		out = append(out, f)
	}
	return out
}

// LoadPolicyFile reads a YAML policy on top of the defaults. Keys missing from
// the file keep their default values.
func LoadPolicyFile(path string) (Policy, error) {
	p := DefaultPolicy()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("config: read policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("config: parse policy file %s: %w", path, err)
	}
	p.AllowedFormats = normalizeFormats(p.AllowedFormats)
	return p, nil
}

// LoadPolicy builds the effective policy: defaults, then POLICY_FILE, then
// individual environment variables.
func LoadPolicy() (Policy, error) {
	p := DefaultPolicy()
	if path := strings.TrimSpace(gcp.GetEnv("POLICY_FILE", "")); path != "" {
		var err error
		if p, err = LoadPolicyFile(path); err != nil {
			return p, err
		}
	}

	p.AllowedFormats = normalizeFormats(gcp.GetEnvList("ALLOWED_FORMATS", p.AllowedFormats))
	p.MaxSizeMB = gcp.GetEnvFloat("MAX_SIZE_MB", p.MaxSizeMB)
	p.MaxSlides = gcp.GetEnvInt("MAX_SLIDES", p.MaxSlides)
	p.MaxBulletPoints = gcp.GetEnvInt("MAX_BULLET_POINTS", p.MaxBulletPoints)
	p.ComplianceThreshold = gcp.GetEnvFloat("COMPLIANCE_THRESHOLD", p.ComplianceThreshold)
	p.MaxConcurrentJudgments = gcp.GetEnvInt("MAX_CONCURRENT_JUDGMENTS", p.MaxConcurrentJudgments)
	p.MaxRetries = gcp.GetEnvInt("MAX_RETRIES", p.MaxRetries)
	p.JudgmentTimeout = gcp.GetEnvDuration("JUDGMENT_TIMEOUT", p.JudgmentTimeout)
	p.RetryBackoff = gcp.GetEnvDuration("RETRY_BACKOFF", p.RetryBackoff)

	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("config: invalid policy: %w", err)
	}
	return p, nil
}

// LoadDotEnv loads a .env file when one is present. A missing file is not an
// error; variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("config: load env file: %w", err)
	}
	return nil
}

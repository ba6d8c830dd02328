// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/juliannp253/Movies-Recommender/internal/logging"
	"github.com/juliannp253/Movies-Recommender/internal/validation"
)

// minJWTSecretLength is the shortest HS256 secret accepted in jwt auth mode.
const minJWTSecretLength = 32

// Validate runs tag validation and the cross-field checks tags cannot express.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	checks := []func() error{
		c.validateMetadata,
		c.validateOracle,
		c.validatePersistence,
		c.validateSchedule,
		c.validateEvents,
		c.validateSecurity,
		c.validateLogging,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateMetadata() error {
	if err := validateHTTPURL(c.Metadata.BaseURL, "metadata.base_url", true); err != nil {
		return err
	}
	return validateHTTPURL(c.Metadata.ImageBaseURL, "metadata.image_base_url", true)
}

func (c *Config) validateOracle() error {
	switch c.Oracle.Provider {
	case "azure":
		if c.Oracle.BaseURL == "" {
			return fmt.Errorf("oracle.base_url (AZURE_OPENAI_ENDPOINT) is required when oracle.provider=azure")
		}
		if c.Oracle.APIVersion == "" {
			return fmt.Errorf("oracle.api_version is required when oracle.provider=azure")
		}
		return validateHTTPURL(c.Oracle.BaseURL, "oracle.base_url", false)
	default:
		if c.Oracle.BaseURL != "" {
			return validateHTTPURL(c.Oracle.BaseURL, "oracle.base_url", true)
		}
	}
	return nil
}

func (c *Config) validatePersistence() error {
	if c.Persistence.Backend == "badger" && c.Persistence.BadgerPath == "" {
		return fmt.Errorf("persistence.badger_path is required when persistence.backend=badger")
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if !c.Schedule.Enabled {
		return nil
	}
	if _, err := c.Schedule.Location(); err != nil {
		return fmt.Errorf("schedule.timezone is invalid: %w", err)
	}
	return nil
}

// Location resolves the schedule timezone. "" and "Local" use the host zone.
func (s ScheduleConfig) Location() (*time.Location, error) {
	if s.Timezone == "" || strings.EqualFold(s.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(s.Timezone)
}

// ParsedWeekday converts the configured weekday name.
func (s ScheduleConfig) ParsedWeekday() time.Weekday {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), s.Weekday) {
			return d
		}
	}
	return time.Sunday
}

func (c *Config) validateEvents() error {
	if !c.Events.Enabled || c.Events.Backend != "nats" {
		return nil
	}
	if c.Events.URL == "" {
		return fmt.Errorf("events.url (NATS_URL) is required when events.backend=nats")
	}
	if err := validateNATSURL(c.Events.URL); err != nil {
		return fmt.Errorf("events.url is invalid: %w", err)
	}
	if c.Events.EmbeddedServer && c.Events.StoreDir == "" {
		return fmt.Errorf("events.store_dir is required when events.embedded_server=true")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.AuthMode != "jwt" {
		return nil
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret (JWT_SECRET) is required when security.auth_mode=jwt")
	}
	if len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("security.jwt_secret must be at least %d characters", minJWTSecretLength)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of trace, debug, info, warn, error, fatal, panic, disabled; got %q", c.Logging.Level)
	}
	return nil
}

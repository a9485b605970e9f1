// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// knownSeasons are the valid mapping.season_factors keys.
var knownSeasons = map[string]bool{"low": true, "mid": true, "high": true}

// Validate checks the configuration. Struct-tag constraints run first,
// then the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: failed %q constraint (value %v)",
				configPath(fe.Namespace()), fe.Tag(), fe.Value())
		}
		return err
	}

	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("retry.max_delay must be >= retry.base_delay")
	}

	for season := range c.Mapping.SeasonFactors {
		if !knownSeasons[season] {
			return fmt.Errorf("mapping.season_factors: unknown season %q (want low, mid or high)", season)
		}
	}

	for _, rule := range c.Telemetry.AlertRules {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("telemetry.alert_rules: %w", err)
		}
	}

	return nil
}

// configPath rewrites a validator namespace like Config.Phobs.BaseURL
// into the config-file path phobs.base_url users actually write.
func configPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 && parts[0] == "Config" {
		parts = parts[1:]
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, snakeCase(p))
	}
	return strings.Join(out, ".")
}

func snakeCase(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			// Keep runs of capitals together: APIKey -> api_key.
			if i > 0 && (s[i-1] < 'A' || s[i-1] > 'Z') {
				b = append(b, '_')
			} else if i > 0 && i+1 < len(s) && s[i+1] >= 'a' && s[i+1] <= 'z' {
				b = append(b, '_')
			}
			c += 'a' - 'A'
		}
		b = append(b, c)
	}
	return string(b)
}

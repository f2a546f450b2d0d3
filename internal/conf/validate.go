package conf

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jaja2302/Palm-counting-AI/internal/errors"
)

// ValidateSettings checks the settings for values that would break startup.
func ValidateSettings(s *Settings) error {
	var problems []string

	if err := ValidateBaseURL(s.AIPack.BaseURL); err != nil {
		problems = append(problems, err.Error())
	}
	if s.AIPack.ChunkSize <= 0 {
		problems = append(problems, fmt.Sprintf("aipack.chunksize must be positive, got %d", s.AIPack.ChunkSize))
	}
	if s.AIPack.MinPackSize < 0 {
		problems = append(problems, "aipack.minpacksize must not be negative")
	}
	if s.Sidecar.MinSize < 0 {
		problems = append(problems, "sidecar.minsize must not be negative")
	}
	if s.Specs.CPUSampleInterval < 0 {
		problems = append(problems, "specs.cpusampleinterval must not be negative")
	}
	if s.MQTT.Enabled && s.MQTT.Broker == "" {
		problems = append(problems, "mqtt.broker is required when mqtt is enabled")
	}
	if s.Telemetry.Enabled && s.Telemetry.DSN == "" {
		problems = append(problems, "telemetry.dsn is required when telemetry is enabled")
	}

	if len(problems) > 0 {
		return errors.Newf("invalid settings:\n  - %s", strings.Join(problems, "\n  - ")).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

// ValidateBaseURL checks that raw is an absolute http(s) URL.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid AI pack base URL %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid AI pack base URL %q: expected http(s)://host[:port]", raw)
	}
	return nil
}

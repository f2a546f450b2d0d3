// Package conf holds host-side settings for the palm counting application: where
// the AI pack is fetched from, where data lives and how logging behaves.
// Per-user inference settings live in the embedded store, not here.
package conf

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jaja2302/Palm-counting-AI/internal/errors"
	"github.com/jaja2302/Palm-counting-AI/internal/logger"
	"github.com/jaja2302/Palm-counting-AI/internal/paths"
)

// EnvPrefix prefixes environment overrides, e.g. PALM_AIPACK_BASEURL.
const EnvPrefix = "PALM"

// Settings is the root of the host configuration.
type Settings struct {
	Debug bool `yaml:"debug"`

	Main struct {
		Name string `yaml:"name"` // instance name, used as MQTT client id
	} `yaml:"main"`

	Paths struct {
		DataDir string `yaml:"datadir"` // overrides the per-user app data root
		TempDir string `yaml:"tempdir"` // overrides the download staging directory
	} `yaml:"paths"`

	AIPack AIPackSettings `yaml:"aipack"`

	Sidecar struct {
		MinSize int64 `yaml:"minsize"` // smaller candidates are treated as placeholders
	} `yaml:"sidecar"`

	Specs SpecsSettings `yaml:"specs"`

	Logging logger.LoggingConfig `yaml:"logging"`

	MQTT MQTTSettings `yaml:"mqtt"`

	Telemetry struct {
		Enabled bool   `yaml:"enabled"`
		DSN     string `yaml:"dsn"`
	} `yaml:"telemetry"`

	Metrics struct {
		Textfile string `yaml:"textfile"` // Prometheus textfile written on exit, empty to disable
	} `yaml:"metrics"`
}

// AIPackSettings configures the pack server and install validation.
type AIPackSettings struct {
	BaseURL     string `yaml:"baseurl"`
	ChunkSize   int    `yaml:"chunksize"`   // read buffer size in bytes
	MinPackSize int64  `yaml:"minpacksize"` // installed size must exceed this
}

// SpecsSettings configures the hardware probe.
type SpecsSettings struct {
	CPUSampleInterval time.Duration `yaml:"cpusampleinterval"`
	CacheTTL          time.Duration `yaml:"cachettl"`
	NvidiaSMI         string        `yaml:"nvidiasmi"`
}

// MQTTSettings configures the optional event mirror.
type MQTTSettings struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// NewViper returns a viper instance with defaults and environment bindings applied.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaultConfig(v)
	return v
}

// Load reads configFile, or config.yaml from the default search paths when
// configFile is empty, and returns validated settings. A missing config file
// is not an error; defaults apply.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		for _, p := range defaultConfigPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.New(fmt.Errorf("error reading config file: %w", err)).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Build()
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// defaultConfigPaths lists the directories searched for config.yaml.
func defaultConfigPaths() []string {
	configPaths := []string{"."}
	if root, err := paths.DefaultAppDataRoot(); err == nil {
		configPaths = append(configPaths, root)
	}
	return configPaths
}

// Dump writes the settings as YAML with secrets masked.
func Dump(w io.Writer, s *Settings) error {
	masked := *s
	if masked.MQTT.Password != "" {
		masked.MQTT.Password = "********"
	}
	if masked.Telemetry.DSN != "" {
		masked.Telemetry.DSN = "********"
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&masked); err != nil {
		return err
	}
	return enc.Close()
}

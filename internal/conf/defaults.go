package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/jaja2302/Palm-counting-AI/internal/logger"
)

// Default values that other packages fall back to when a setting is zero.
const (
	DefaultBaseURL       = "http://localhost:8765"
	DefaultChunkSize     = 64 * 1024
	DefaultMinPackSize   = 5_000_000
	DefaultSidecarMin    = 1_000_000
	DefaultCPUSample     = 200 * time.Millisecond
	DefaultSpecsCacheTTL = 5 * time.Minute
	DefaultNvidiaSMI     = "nvidia-smi"
)

func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("main.name", "palm-counting-ai")

	v.SetDefault("paths.datadir", "")
	v.SetDefault("paths.tempdir", "")

	v.SetDefault("aipack.baseurl", DefaultBaseURL)
	v.SetDefault("aipack.chunksize", DefaultChunkSize)
	v.SetDefault("aipack.minpacksize", DefaultMinPackSize)

	v.SetDefault("sidecar.minsize", DefaultSidecarMin)

	v.SetDefault("specs.cpusampleinterval", DefaultCPUSample)
	v.SetDefault("specs.cachettl", DefaultSpecsCacheTTL)
	v.SetDefault("specs.nvidiasmi", DefaultNvidiaSMI)

	v.SetDefault("logging.default_level", logger.DefaultLogLevel)
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", logger.DefaultLogLevel)
	v.SetDefault("logging.file_output.enabled", true)
	v.SetDefault("logging.file_output.path", "")
	v.SetDefault("logging.file_output.level", "debug")
	v.SetDefault("logging.file_output.max_size", logger.DefaultMaxSize)
	v.SetDefault("logging.file_output.max_age", logger.DefaultMaxAge)
	v.SetDefault("logging.file_output.max_rotated_files", logger.DefaultMaxRotatedFiles)
	v.SetDefault("logging.file_output.compress", false)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.topic", "palm-counting")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dsn", "")

	v.SetDefault("metrics.textfile", "")
}

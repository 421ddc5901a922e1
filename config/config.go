package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"

	"github.com/phloem-dev/phloem/lib/console"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

type SyncConfig struct {
	// Base URL of the remote git server hosting projects.
	GitServerURL string `yaml:"git_server_url,omitempty"`
	// Max remote git operations per minute. Overleaf throttles aggressive
	// clients, so all network-touching transport calls share one limiter.
	RemoteOpsPerMinute int `yaml:"remote_ops_per_minute"`
}

type WatchConfig struct {
	// Default polling interval in seconds for change listeners.
	DefaultInterval int `yaml:"default_interval"`
	// Ceiling in seconds for backed-off polling intervals.
	MaxInterval int `yaml:"max_interval"`
}

type Config struct {
	// Whether or not to print verbose output.
	Verbose bool
	Sync    SyncConfig
	Watch   WatchConfig
	// Rate limiter for remote git operations.
	// Required to abide by rate limits set by the project host.
	RateLimiter *rate.Limiter `yaml:"-"`
}

// Singleton CLI config instance.
var I Config

// Returns path to the phloem global config file.
func GetConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatal(err)
	}

	return filepath.Join(homeDir, ".phloem/config.yml")
}

// Initialize the CLI config.
func InitConfig() Config {
	cpath := GetConfigPath()

	// Create default config file if it doesn't exist yet
	if _, err := os.Stat(cpath); errors.Is(err, os.ErrNotExist) {
		// Create directories if they don't exist
		err := os.MkdirAll(filepath.Dir(cpath), 0755)
		if err != nil {
			log.Fatal(err)
		}

		I = Config{
			Sync: SyncConfig{
				RemoteOpsPerMinute: 60,
			},
			Watch: WatchConfig{
				DefaultInterval: 60,
				MaxInterval:     3600,
			},
		}

		// Write default config to file
		cYaml, err := yaml.Marshal(I)
		if err != nil {
			log.Fatal(err)
		}

		err = os.WriteFile(cpath, cYaml, 0644)
		if err != nil {
			log.Fatal(err)
		}

		// Set internal and default config fields
		SetInternalConfigFields(&I)
	} else {
		// Open file
		cBytes, err := os.ReadFile(cpath)
		if err != nil {
			log.Fatal(err)
		}

		// Decode file contents
		var config Config
		err = yaml.Unmarshal(cBytes, &config)
		if err != nil {
			log.Fatal(err)
		}

		// Set internal and default config fields
		SetInternalConfigFields(&config)

		// Set config instance
		I = config
	}

	// Validate config
	if I.Watch.DefaultInterval <= 0 {
		log.Fatal("\"watch.default_interval\" must be a positive number of seconds")
	}
	if I.Watch.MaxInterval < I.Watch.DefaultInterval {
		log.Fatal("\"watch.max_interval\" must not be smaller than \"watch.default_interval\"")
	}

	console.Verbosity = I.Verbose

	if I.Verbose {
		// Print config as JSON
		cfgJson, err := json.MarshalIndent(I, "", "  ")
		if err != nil {
			log.Fatal(err)
		}

		console.Verbose("Config:")
		console.Verbose(string(cfgJson))
	}

	return I
}

// Set internal config fields.
func SetInternalConfigFields(config *Config) {
	// Set defaults for missing fields
	if config.Sync.GitServerURL == "" {
		config.Sync.GitServerURL = "https://git.overleaf.com"
	}
	if config.Sync.RemoteOpsPerMinute == 0 {
		config.Sync.RemoteOpsPerMinute = 60
	}
	if config.Watch.DefaultInterval == 0 {
		config.Watch.DefaultInterval = 60
	}
	if config.Watch.MaxInterval == 0 {
		config.Watch.MaxInterval = 3600
	}

	config.RateLimiter = rate.NewLimiter(rate.Limit(float64(config.Sync.RemoteOpsPerMinute)/60), 1)
}

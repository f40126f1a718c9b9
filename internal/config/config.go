package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// Config carries one invocation's settings, merged from flags and the
// environment. Immutable after Load.
type Config struct {
	// Batch mode
	InputDir     string
	OutputDir    string
	Model        string
	Strength     float64
	Erode        int
	AlphaLow     float64
	AlphaHigh    float64
	SkipExisting bool
	Workers      int
	MaxSize      int
	Schedule     string

	// Collaborators
	RembgURL    string
	GimpPath    string
	GimpEnvPath string

	// Optional Azure output sink
	AzureAccount   string
	AzureKey       string
	AzureContainer string

	// Serve mode
	Serve       bool
	Host        string
	Port        string
	MaxBodySize int64
}

// ServerAddress joins the configured host and port
func (c *Config) ServerAddress() string {
	return net.JoinHostPort(strings.TrimSpace(c.Host), strings.TrimSpace(c.Port))
}

// Load parses command-line arguments on top of environment defaults
func Load(args []string) (*Config, error) {
	cfg := &Config{
		RembgURL:       getEnvOrDefault("REMBG_URL", "http://127.0.0.1:7000"),
		GimpEnvPath:    os.Getenv("GIMP_EXECUTABLE"),
		AzureAccount:   os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureKey:       os.Getenv("AZURE_STORAGE_KEY"),
		AzureContainer: os.Getenv("AZURE_STORAGE_CONTAINER"),
		Host:           getEnvOrDefault("HOST", "0.0.0.0"),
		Port:           getEnvOrDefault("PORT", "8080"),
		MaxBodySize:    10 * 1024 * 1024,
	}

	fs := flag.NewFlagSet("rembg-clean", flag.ContinueOnError)
	fs.StringVar(&cfg.OutputDir, "out", "", "output folder (default: input folder)")
	fs.StringVar(&cfg.GimpPath, "gimp", "", "override GIMP executable path")
	fs.StringVar(&cfg.Model, "model", "isnet-general-use", "rembg model")
	fs.Float64Var(&cfg.Strength, "strength", 1.0, "clean strength 0..1")
	fs.IntVar(&cfg.Erode, "erode", 0, "alpha micro-erosion radius in pixels")
	fs.Float64Var(&cfg.AlphaLow, "a-low", 0.05, "lower alpha classification threshold")
	fs.Float64Var(&cfg.AlphaHigh, "a-high", 0.95, "upper alpha classification threshold")
	fs.BoolVar(&cfg.SkipExisting, "skip-existing", false, "skip files whose output already exists")
	fs.IntVar(&cfg.Workers, "workers", 1, "concurrent items (segmentation stays serialized)")
	fs.IntVar(&cfg.MaxSize, "max-size", 0, "downscale longest edge to this many pixels before segmentation (0 = off)")
	fs.StringVar(&cfg.Schedule, "schedule", "", "cron expression to re-run the batch on")
	fs.StringVar(&cfg.RembgURL, "rembg-url", cfg.RembgURL, "rembg server base URL")
	fs.BoolVar(&cfg.Serve, "serve", false, "run the HTTP API instead of a batch")
	fs.StringVar(&cfg.Port, "port", cfg.Port, "HTTP port for serve mode")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.Serve {
		if fs.NArg() != 0 {
			return nil, fmt.Errorf("serve mode takes no folder argument")
		}
	} else {
		if fs.NArg() != 1 {
			return nil, fmt.Errorf("expected exactly one input folder argument, got %d", fs.NArg())
		}
		cfg.InputDir = fs.Arg(0)
		if cfg.OutputDir == "" {
			cfg.OutputDir = cfg.InputDir
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Strength < 0 || c.Strength > 1 {
		return fmt.Errorf("strength must be in [0,1], got %g", c.Strength)
	}
	if c.Erode < 0 {
		return fmt.Errorf("erode must be >= 0, got %d", c.Erode)
	}
	if c.AlphaLow < 0 || c.AlphaHigh > 1 || c.AlphaLow >= c.AlphaHigh {
		return fmt.Errorf("alpha thresholds must satisfy 0 <= a-low < a-high <= 1, got %g/%g", c.AlphaLow, c.AlphaHigh)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.MaxSize < 0 {
		return fmt.Errorf("max-size must be >= 0, got %d", c.MaxSize)
	}
	if c.RembgURL == "" {
		return fmt.Errorf("rembg server URL must not be empty")
	}
	if c.AzureAccount != "" && (c.AzureKey == "" || c.AzureContainer == "") {
		return fmt.Errorf("AZURE_STORAGE_ACCOUNT requires AZURE_STORAGE_KEY and AZURE_STORAGE_CONTAINER")
	}
	if c.Serve {
		p, err := strconv.Atoi(strings.TrimSpace(c.Port))
		if err != nil || p < 1 || p > 65535 {
			return fmt.Errorf("invalid port: %q", c.Port)
		}
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

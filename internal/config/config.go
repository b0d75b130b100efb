package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingCredentials is returned before any browser is launched when the
// ADI account credentials are not configured.
var ErrMissingCredentials = errors.New("missing ADI_USER/ADI_PASS credentials")

type Config struct {
	Credentials CredentialsConfig
	Session     SessionConfig
	Harvest     HarvestConfig
	Detail      DetailConfig
	Browser     BrowserConfig
	Export      ExportConfig
	Logging     LoggingConfig
}

type CredentialsConfig struct {
	User     string
	Password string
}

type SessionConfig struct {
	HomeURL         string
	SignInURL       string
	StatePath       string
	LoginWindow     time.Duration
	SecondaryWindow time.Duration
	ProbeInterval   time.Duration
}

type HarvestConfig struct {
	MaxIterations   int
	StableThreshold int
	LoadSettle      time.Duration
	SeenCacheSize   int
}

type DetailConfig struct {
	PageSettle     time.Duration
	PricingTimeout time.Duration
	ItemDelayMin   time.Duration
	ItemDelayMax   time.Duration
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	Locale         string
	TimezoneID     string
	BlockResources bool
}

type ExportConfig struct {
	Dir      string
	DebugDir string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Credentials: CredentialsConfig{
			User:     os.Getenv("ADI_USER"),
			Password: os.Getenv("ADI_PASS"),
		},
		Session: SessionConfig{
			HomeURL:         getEnvOrDefault("ADI_HOME_URL", "https://www.adiglobaldistribution.us/"),
			SignInURL:       getEnvOrDefault("ADI_SIGNIN_URL", "https://www.adiglobaldistribution.us/MyAccount/signin"),
			StatePath:       getEnvOrDefault("ADI_STATE_PATH", ".auth/adi-storage-state.json"),
			LoginWindow:     getDurationOrDefault("SESSION_LOGIN_WINDOW", 120*time.Second),
			SecondaryWindow: getDurationOrDefault("SESSION_SECONDARY_WINDOW", 20*time.Second),
			ProbeInterval:   getDurationOrDefault("SESSION_PROBE_INTERVAL", 300*time.Millisecond),
		},
		Harvest: HarvestConfig{
			MaxIterations:   getIntOrDefault("HARVEST_MAX_ITERATIONS", 500),
			StableThreshold: getIntOrDefault("HARVEST_STABLE_THRESHOLD", 3),
			LoadSettle:      getDurationOrDefault("HARVEST_LOAD_SETTLE", 900*time.Millisecond),
			SeenCacheSize:   getIntOrDefault("HARVEST_SEEN_CACHE_SIZE", 4096),
		},
		Detail: DetailConfig{
			PageSettle:     getDurationOrDefault("DETAIL_PAGE_SETTLE", 1200*time.Millisecond),
			PricingTimeout: getDurationOrDefault("DETAIL_PRICING_TIMEOUT", 10*time.Second),
			ItemDelayMin:   getDurationOrDefault("DETAIL_ITEM_DELAY_MIN", 800*time.Millisecond),
			ItemDelayMax:   getDurationOrDefault("DETAIL_ITEM_DELAY_MAX", 2*time.Second),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1400),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 900),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "en-US"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "America/New_York"),
			BlockResources: getBoolOrDefault("BROWSER_BLOCK_RESOURCES", false),
		},
		Export: ExportConfig{
			Dir:      getEnvOrDefault("EXPORT_DIR", "data/exports"),
			DebugDir: getEnvOrDefault("DEBUG_DIR", "data/logs"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Credentials.User == "" || c.Credentials.Password == "" {
		return ErrMissingCredentials
	}

	if c.Harvest.MaxIterations < 1 {
		return fmt.Errorf("HARVEST_MAX_ITERATIONS must be at least 1")
	}

	if c.Harvest.StableThreshold < 1 {
		return fmt.Errorf("HARVEST_STABLE_THRESHOLD must be at least 1")
	}

	if c.Detail.ItemDelayMin > c.Detail.ItemDelayMax {
		return fmt.Errorf("DETAIL_ITEM_DELAY_MIN cannot be greater than DETAIL_ITEM_DELAY_MAX")
	}

	return nil
}

// BrandConfig carries the site-template constants that vary per vendor:
// the listing URL, the price label vocabulary, and optional selector
// overrides for listing tiles.
type BrandConfig struct {
	Name             string
	ListingURL       string
	PriceLabels      []string
	TileSelectors    []string
	AltModelPrefixes []string
}

func searchURL(brand string) string {
	q := url.Values{}
	q.Set("q", brand)
	q.Set("category", "Cameras")
	return "https://www.adiglobaldistribution.us/Search?" + q.Encode()
}

func defaultBrands() []BrandConfig {
	return []BrandConfig{
		{
			Name:             "Hanwha",
			ListingURL:       searchURL("Hanwha"),
			PriceLabels:      []string{"MSRP", "List Price", "List"},
			AltModelPrefixes: []string{"SLA-", "XNV", "QNV"},
		},
		{
			Name:             "Axis",
			ListingURL:       searchURL("Axis"),
			PriceLabels:      []string{"MSRP", "List Price", "List"},
			AltModelPrefixes: []string{"01", "02"},
		},
		{
			Name:             "Avigilon",
			ListingURL:       searchURL("Avigilon"),
			PriceLabels:      []string{"MSRP", "List Price", "List"},
			AltModelPrefixes: []string{"H5A", "H6"},
		},
	}
}

// Brands resolves a brand name (case-insensitive) to its configuration.
// The special name "all" expands to every configured brand.
func Brands(name string) ([]BrandConfig, error) {
	brands := defaultBrands()
	if strings.EqualFold(name, "all") {
		return brands, nil
	}

	for _, b := range brands {
		if strings.EqualFold(b.Name, name) {
			return []BrandConfig{b}, nil
		}
	}

	known := make([]string, 0, len(brands))
	for _, b := range brands {
		known = append(known, b.Name)
	}
	return nil, fmt.Errorf("unknown brand %q (known: %s, or 'all')", name, strings.Join(known, ", "))
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/place-info/internal/place"
)

type AppConfig struct {
	Places []place.Spec `validate:"required,min=1,dive"`

	Weather  WeatherConfig
	Currency CurrencyConfig
	Render   RenderConfig

	// Outbound HTTP and circuit breaker settings shared by both providers.
	HTTPTimeout        time.Duration `validate:"gt=0"`
	BreakerMaxFailures int           `validate:"gte=1"`
	BreakerOpenTimeout time.Duration `validate:"gt=0"`

	LogLevel string
	Port     string `validate:"required,numeric"`
}

type WeatherConfig struct {
	API       string `validate:"required,url"`
	Endpoint  string `validate:"required"`
	Version   string `validate:"required"`
	Key       string
	Units     string        `validate:"oneof=standard metric imperial"`
	Interval  time.Duration `validate:"gt=0"`
	LoadDelay time.Duration `validate:"gte=0"`
	Precision int           `validate:"gte=0,lte=6"`
}

type CurrencyConfig struct {
	API        string `validate:"required,url"`
	Key        string
	KeyHeader  string
	Base       string `validate:"len=3,alpha"`
	RelativeTo string `validate:"omitempty,len=3,alpha"`
	Reversed   bool
	Precision  int           `validate:"gte=0,lte=10"`
	Interval   time.Duration `validate:"gt=0"`
	LoadDelay  time.Duration `validate:"gte=0"`

	// CacheTTL is how long a persisted response is served instead of calling the provider.
	CacheTTL     time.Duration `validate:"gt=0"`
	CacheBackend string        `validate:"oneof=file redis"`
	CacheFile    string        `validate:"required_if=CacheBackend file"`
	RedisURL     string        `validate:"required_if=CacheBackend redis"`
	RedisKey     string        `validate:"required_if=CacheBackend redis"`
}

type RenderConfig struct {
	// Interval is the fixed re-render period, independent of fetches.
	Interval         time.Duration `validate:"gt=0"`
	TimeFormat       string        `validate:"required"`
	Layout           string        `validate:"oneof=table list"`
	ShowCustomHeader bool
	ShowFlag         bool
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}
	var err error

	cfg.Weather = WeatherConfig{
		API:      getenvDefault("WEATHER_API", "https://api.openweathermap.org/data"),
		Endpoint: getenvDefault("WEATHER_API_ENDPOINT", "weather"),
		Version:  getenvDefault("WEATHER_API_VERSION", "2.5"),
		Key:      os.Getenv("WEATHER_API_KEY"),
		Units:    getenvDefault("WEATHER_UNITS", "metric"),
	}
	if cfg.Weather.Interval, err = getenvDuration("WEATHER_INTERVAL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Weather.LoadDelay, err = getenvDuration("WEATHER_LOAD_DELAY", 0); err != nil {
		return nil, err
	}
	cfg.Weather.Precision = getenvInt("WEATHER_PRECISION", 0)

	cfg.Currency = CurrencyConfig{
		API:          getenvDefault("CURRENCY_API", "http://data.fixer.io/api/latest"),
		Key:          os.Getenv("CURRENCY_API_KEY"),
		KeyHeader:    os.Getenv("CURRENCY_API_KEY_HEADER"),
		Base:         strings.ToUpper(getenvDefault("CURRENCY_BASE", "EUR")),
		RelativeTo:   strings.ToUpper(getenvOptional("CURRENCY_RELATIVE_TO", "EUR")),
		Reversed:     getenvBool("CURRENCY_REVERSED", false),
		Precision:    getenvInt("CURRENCY_PRECISION", 3),
		CacheBackend: getenvDefault("CURRENCY_CACHE_BACKEND", "file"),
		CacheFile:    getenvDefault("CURRENCY_CACHE_FILE", "currency_cache.json"),
		RedisURL:     os.Getenv("REDIS_URL"),
		RedisKey:     getenvDefault("REDIS_CACHE_KEY", "placeinfo:currency"),
	}
	if cfg.Currency.Interval, err = getenvDuration("CURRENCY_INTERVAL", 4*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Currency.LoadDelay, err = getenvDuration("CURRENCY_LOAD_DELAY", 0); err != nil {
		return nil, err
	}
	if cfg.Currency.CacheTTL, err = getenvDuration("CACHE_TTL", 4*time.Hour); err != nil {
		return nil, err
	}

	cfg.Render = RenderConfig{
		TimeFormat:       getenvDefault("TIME_FORMAT", "15:04 PM"),
		Layout:           getenvDefault("LAYOUT_STYLE", "table"),
		ShowCustomHeader: getenvBool("SHOW_CUSTOM_HEADER", false),
		ShowFlag:         getenvBool("SHOW_FLAG", true),
	}
	if cfg.Render.Interval, err = getenvDuration("RENDER_INTERVAL", time.Second); err != nil {
		return nil, err
	}

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	cfg.BreakerMaxFailures = getenvInt("BREAKER_MAX_FAILURES", 5)
	if cfg.BreakerOpenTimeout, err = getenvDuration("BREAKER_OPEN_TIMEOUT", time.Minute); err != nil {
		return nil, err
	}

	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.Port = getenvDefault("PORT", "8080")

	places, err := loadPlaces()
	if err != nil {
		return nil, err
	}
	cfg.Places = places

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.Places = place.Normalize(cfg.Places)
	if err := uniquePlaceIDs(cfg.Places); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadPlaces reads the place list from PLACES_FILE, or from the inline JSON in PLACES.
func loadPlaces() ([]place.Spec, error) {
	var raw []byte
	if path := os.Getenv("PLACES_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read PLACES_FILE: %w", err)
		}
		raw = b
	} else if inline := os.Getenv("PLACES"); inline != "" {
		raw = []byte(inline)
	} else {
		return nil, fmt.Errorf("no places configured: set PLACES_FILE or PLACES")
	}

	var places []place.Spec
	if err := json.Unmarshal(raw, &places); err != nil {
		return nil, fmt.Errorf("invalid places JSON: %w", err)
	}
	for i := range places {
		places[i].Currency = strings.ToUpper(places[i].Currency)
	}
	return places, nil
}

// uniquePlaceIDs rejects places sharing an id; results are joined by id.
func uniquePlaceIDs(places []place.Spec) error {
	seen := make(map[string]string, len(places))
	for _, p := range places {
		if other, dup := seen[p.ID]; dup {
			return fmt.Errorf("places %q and %q share id %q", other, p.Title, p.ID)
		}
		seen[p.ID] = p.Title
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getenvOptional is getenvDefault except that a variable set to "" stays empty.
func getenvOptional(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
		log.Printf("WARN: invalid value for %s, using default %d", key, def)
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
		log.Printf("WARN: invalid value for %s, using default %t", key, def)
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/anjiri1684/tutor_desk/services"
	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type AppConfig struct {
	Port     string
	Location *time.Location

	StoreDriver       string
	DatabaseURL       string
	MongoURI          string
	MongoDB           string
	MongoTransactions bool

	JWTSecret         string
	AdminPasswordHash string
	TokenTTL          time.Duration

	PricePoints   []services.PricePointRule
	Grid          services.GridConfig
	ReconcileCron string

	CloudinaryURL    string
	CloudinaryFolder string
	Issuer           services.Issuer
}

// Load reads the whole configuration from the environment, with .env applied
// first. Every invalid value is reported at once.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("Warning: .env file not found, reading from system environment variables")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from a lookup function.
func FromEnv(getenv func(string) string) (*AppConfig, error) {
	r := reader{getenv: getenv}

	cfg := &AppConfig{
		Port:              r.str("APP_PORT", "8080"),
		StoreDriver:       strings.ToLower(r.str("STORE_DRIVER", DriverPostgres)),
		DatabaseURL:       r.str("DATABASE_URL", ""),
		MongoURI:          r.str("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:           r.str("MONGO_DB", "tutor_desk"),
		MongoTransactions: r.boolean("MONGO_TRANSACTIONS", false),
		JWTSecret:         r.str("JWT_SECRET", ""),
		AdminPasswordHash: r.str("ADMIN_PASSWORD_HASH", ""),
		TokenTTL:          time.Duration(r.integer("TOKEN_TTL_HOURS", 72)) * time.Hour,
		ReconcileCron:     r.str("RECONCILE_CRON", "0 */6 * * *"),
		CloudinaryURL:     r.str("CLOUDINARY_URL", ""),
		CloudinaryFolder:  r.str("CLOUDINARY_FOLDER", "tutor_desk/documents"),
	}

	loc, err := time.LoadLocation(r.str("TIMEZONE", "Europe/Paris"))
	if err != nil {
		r.fail("TIMEZONE", err)
		loc = time.UTC
	}
	cfg.Location = loc

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			r.fail("DATABASE_URL", errors.New("required when STORE_DRIVER=postgres"))
		}
	case DriverMongo, DriverMemory:
	default:
		r.fail("STORE_DRIVER", fmt.Errorf("unknown driver %q", cfg.StoreDriver))
	}

	if cfg.AdminPasswordHash != "" && cfg.JWTSecret == "" {
		r.fail("JWT_SECRET", errors.New("required when ADMIN_PASSWORD_HASH is set"))
	}

	if raw := r.str("PRICE_POINTS", ""); raw != "" {
		points, err := ParsePricePoints(raw)
		if err != nil {
			r.fail("PRICE_POINTS", err)
		}
		cfg.PricePoints = points
	} else {
		cfg.PricePoints = services.DefaultPricePoints
	}

	grid := services.DefaultGridConfig()
	grid.StartHour = r.integer("AGENDA_START_HOUR", grid.StartHour)
	grid.EndHour = r.integer("AGENDA_END_HOUR", grid.EndHour)
	grid.PixelsPerHour = r.float("AGENDA_PIXELS_PER_HOUR", grid.PixelsPerHour)
	if grid.StartHour < 0 || grid.EndHour > 24 || grid.StartHour >= grid.EndHour {
		r.fail("AGENDA_END_HOUR", fmt.Errorf("grid hours %d-%d out of range", grid.StartHour, grid.EndHour))
	}
	if grid.PixelsPerHour <= 0 {
		r.fail("AGENDA_PIXELS_PER_HOUR", errors.New("must be positive"))
	}
	mode, err := services.ParseGroupingMode(r.str("AGENDA_GROUPING", ""))
	if err != nil {
		r.fail("AGENDA_GROUPING", err)
	}
	grid.Grouping = mode
	cfg.Grid = grid

	cfg.Issuer = services.Issuer{
		CompanyName:     r.required("COMPANY_NAME"),
		CompanyAddress:  r.required("COMPANY_ADDRESS"),
		Siret:           r.required("COMPANY_SIRET"),
		AgreementNumber: r.str("COMPANY_AGREEMENT", ""),
	}

	if len(r.errs) > 0 {
		return nil, errors.Join(r.errs...)
	}
	return cfg, nil
}

// ParsePricePoints reads "label:price" pairs separated by commas.
func ParsePricePoints(raw string) ([]services.PricePointRule, error) {
	var points []services.PricePointRule
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		label, price, ok := strings.Cut(pair, ":")
		if !ok || strings.TrimSpace(label) == "" {
			return nil, fmt.Errorf("malformed price point %q, expected label:price", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(price), 64)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("invalid price in %q", pair)
		}
		points = append(points, services.PricePointRule{Label: strings.TrimSpace(label), Price: v})
	}
	if len(points) == 0 {
		return nil, errors.New("no price points")
	}
	return points, nil
}

type reader struct {
	getenv func(string) string
	errs   []error
}

func (r *reader) fail(key string, err error) {
	r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
}

func (r *reader) str(key, fallback string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (r *reader) required(key string) string {
	v := r.str(key, "")
	if v == "" {
		r.fail(key, errors.New("required"))
	}
	return v
}

func (r *reader) integer(key string, fallback int) int {
	raw := r.str(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		r.fail(key, err)
		return fallback
	}
	return v
}

func (r *reader) float(key string, fallback float64) float64 {
	raw := r.str(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		r.fail(key, err)
		return fallback
	}
	return v
}

func (r *reader) boolean(key string, fallback bool) bool {
	raw := r.str(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		r.fail(key, err)
		return fallback
	}
	return v
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	DatabaseURL string
	LogLevel    string
	LogFormat   string

	Redis     RedisConfig
	Kafka     KafkaConfig
	Screening ScreeningConfig
	Cache     CacheConfig
	Circuit   CircuitConfig
	Sources   SourcesConfig
}

// RedisConfig configures the shared lookup cache backend. An empty URL
// selects the in-process cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures report event publishing. No brokers disables it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// ScreeningConfig holds the compliance-tunable policy values.
type ScreeningConfig struct {
	DefaultThreshold int
	TopN             int
	RiskCritical     int
	RiskHigh         int
	RiskMedium       int
	ConnectorTimeout time.Duration
	MaxConcurrency   int
	// SourceRateLimit caps live calls per source per SourceRateWindow.
	// Zero disables the cap.
	SourceRateLimit  int
	SourceRateWindow time.Duration
}

// CacheConfig holds per-family TTLs for positive and negative lookups.
type CacheConfig struct {
	SanctionsTTL          time.Duration
	RegistryTTL           time.Duration
	IdentifierTTL         time.Duration
	SanctionsNegativeTTL  time.Duration
	RegistryNegativeTTL   time.Duration
	IdentifierNegativeTTL time.Duration
}

// CircuitConfig tunes the per-connector circuit breaker.
type CircuitConfig struct {
	FailureThreshold int
	SuccessThreshold int
	Cooldown         time.Duration
}

// SourcesConfig lists the upstream sources. A source with an empty URL is
// not registered.
type SourcesConfig struct {
	NationalJurisdiction  string
	CompanyRegistryURL    string
	PopulationRegistryURL string
	AggregatorURL         string
	AggregatorAPIKey      string

	// AggregatorJurisdictions are the jurisdictions the aggregator is
	// searched for.
	AggregatorJurisdictions []string
	SanctionsLists          []SanctionsList
}

// SanctionsList describes one government list endpoint.
type SanctionsList struct {
	ID           string
	Name         string
	Issuer       string
	Jurisdiction string
	Tag          string
	URL          string
}

// FromEnv builds a Server config from environment variables. Malformed
// values fall back to defaults and are reported in the returned warnings.
func FromEnv() (Server, []string) {
	return fromLookup(os.LookupEnv)
}

type lookupFunc func(string) (string, bool)

type reader struct {
	lookup   lookupFunc
	warnings []string
}

func fromLookup(lookup lookupFunc) (Server, []string) {
	r := &reader{lookup: lookup}

	cfg := Server{
		Addr:        r.str("SCREENER_ADDR", ":8080"),
		DatabaseURL: r.str("DATABASE_URL", ""),
		LogLevel:    r.str("LOG_LEVEL", "info"),
		LogFormat:   r.str("LOG_FORMAT", "text"),
		Redis: RedisConfig{
			URL:          r.str("REDIS_URL", ""),
			PoolSize:     r.integer("REDIS_POOL_SIZE", 10, 1, 1000),
			MinIdleConns: r.integer("REDIS_MIN_IDLE_CONNS", 2, 0, 1000),
			DialTimeout:  r.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  r.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: r.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: r.list("KAFKA_BROKERS"),
			Topic:   r.str("KAFKA_TOPIC", "screening.reports"),
		},
		Screening: ScreeningConfig{
			DefaultThreshold: r.integer("SCREENING_DEFAULT_THRESHOLD", 80, 0, 100),
			TopN:             r.integer("SCREENING_TOP_N", 10, 1, 1000),
			RiskCritical:     r.integer("SCREENING_RISK_CRITICAL", 95, 0, 100),
			RiskHigh:         r.integer("SCREENING_RISK_HIGH", 90, 0, 100),
			RiskMedium:       r.integer("SCREENING_RISK_MEDIUM", 80, 0, 100),
			ConnectorTimeout: r.duration("SCREENING_CONNECTOR_TIMEOUT", 5*time.Second),
			MaxConcurrency:   r.integer("SCREENING_MAX_CONCURRENCY", 8, 1, 256),
			SourceRateLimit:  r.integer("SOURCE_RATE_LIMIT", 0, 0, 1_000_000),
			SourceRateWindow: r.duration("SOURCE_RATE_WINDOW", time.Minute),
		},
		Cache: CacheConfig{
			SanctionsTTL:          r.duration("CACHE_TTL_SANCTIONS", 12*time.Hour),
			RegistryTTL:           r.duration("CACHE_TTL_REGISTRY", 7*24*time.Hour),
			IdentifierTTL:         r.duration("CACHE_TTL_IDENTIFIER", 21*24*time.Hour),
			SanctionsNegativeTTL:  r.duration("CACHE_NEGATIVE_TTL_SANCTIONS", time.Hour),
			RegistryNegativeTTL:   r.duration("CACHE_NEGATIVE_TTL_REGISTRY", 24*time.Hour),
			IdentifierNegativeTTL: r.duration("CACHE_NEGATIVE_TTL_IDENTIFIER", 72*time.Hour),
		},
		Circuit: CircuitConfig{
			FailureThreshold: r.integer("CIRCUIT_FAILURE_THRESHOLD", 5, 1, 1000),
			SuccessThreshold: r.integer("CIRCUIT_SUCCESS_THRESHOLD", 1, 1, 1000),
			Cooldown:         r.duration("CIRCUIT_COOLDOWN", 30*time.Second),
		},
		Sources: SourcesConfig{
			NationalJurisdiction:  strings.ToUpper(r.str("NATIONAL_JURISDICTION", "SE")),
			CompanyRegistryURL:    r.str("COMPANY_REGISTRY_URL", ""),
			PopulationRegistryURL: r.str("POPULATION_REGISTRY_URL", ""),
			AggregatorURL:         r.str("AGGREGATOR_URL", ""),
			AggregatorAPIKey:      r.str("AGGREGATOR_API_KEY", ""),
		},
	}
	cfg.Sources.SanctionsLists = r.sanctionsLists("SANCTIONS_LISTS")
	cfg.Sources.AggregatorJurisdictions = r.list("AGGREGATOR_JURISDICTIONS")
	if len(cfg.Sources.AggregatorJurisdictions) == 0 {
		cfg.Sources.AggregatorJurisdictions = []string{"EU", "GB", "SE", "UN", "US"}
	}
	for i, j := range cfg.Sources.AggregatorJurisdictions {
		cfg.Sources.AggregatorJurisdictions[i] = strings.ToUpper(j)
	}

	s := cfg.Screening
	if !(s.RiskCritical >= s.RiskHigh && s.RiskHigh >= s.RiskMedium) {
		r.warn("risk thresholds must be ordered critical >= high >= medium, using 95/90/80")
		cfg.Screening.RiskCritical, cfg.Screening.RiskHigh, cfg.Screening.RiskMedium = 95, 90, 80
	}
	return cfg, r.warnings
}

func (r *reader) warn(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

func (r *reader) str(key, def string) string {
	if v, ok := r.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *reader) integer(key string, def, min, max int) int {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		r.warn("%s=%q is not an integer in [%d,%d], using %d", key, raw, min, max, def)
		return def
	}
	return n
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		r.warn("%s=%q is not a positive duration, using %s", key, raw, def)
		return def
	}
	return d
}

func (r *reader) list(key string) []string {
	raw := r.str(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// sanctionsLists parses "id|name|issuer|jurisdiction|tag|url" entries
// separated by ";".
func (r *reader) sanctionsLists(key string) []SanctionsList {
	raw := r.str(key, "")
	if raw == "" {
		return nil
	}
	var out []SanctionsList
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		f := strings.Split(entry, "|")
		if len(f) != 6 {
			r.warn("%s entry %q needs 6 fields id|name|issuer|jurisdiction|tag|url, skipped", key, entry)
			continue
		}
		for i := range f {
			f[i] = strings.TrimSpace(f[i])
		}
		tag := strings.ToLower(f[4])
		if tag != "sanctioned" && tag != "debarred" {
			r.warn("%s entry %q has tag %q, want sanctioned or debarred, skipped", key, f[0], f[4])
			continue
		}
		out = append(out, SanctionsList{
			ID:           f[0],
			Name:         f[1],
			Issuer:       f[2],
			Jurisdiction: strings.ToUpper(f[3]),
			Tag:          tag,
			URL:          f[5],
		})
	}
	return out
}

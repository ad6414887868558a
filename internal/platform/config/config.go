package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hanko-field/ordersim/internal/calendar"
	"github.com/hanko-field/ordersim/internal/platform/textutil"
	"github.com/hanko-field/ordersim/internal/services"
)

const (
	envPrefix             = "ORDERSIM_"
	defaultEnvFile        = ".env"
	defaultOutputDir      = "out"
	defaultLocale         = "en-US"
	defaultHolidayCountry = "US"
	defaultHTTPAddr       = ":8080"
	defaultReadTimeout    = 15 * time.Second
	defaultWriteTimeout   = 5 * time.Minute
	defaultIdleTimeout    = 120 * time.Second
	defaultGCSPrefix      = "datasets"
	defaultLogLevel       = "info"
	dateLayout            = "2006-01-02"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Simulation services.SimulationSettings
	Output     OutputConfig
	Holidays   HolidayConfig
	Server     ServerConfig
	GCP        GCPConfig
	Storage    StorageConfig
	PubSub     PubSubConfig
	Firestore  FirestoreConfig
	Signing    SigningConfig
	Log        LogConfig
	// Diagnostics lists non-fatal problems found while loading, such as a missing config file.
	Diagnostics []Diagnostic
}

// OutputConfig controls the local dataset artifacts.
type OutputConfig struct {
	Dir         string
	Formats     []string
	Locale      string
	SmoothDaily bool
}

// HolidayConfig selects the holiday calendar.
type HolidayConfig struct {
	Country string
	Extra   []calendar.Holiday
}

// ServerConfig configures the HTTP trigger.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// GCPConfig stores the project shared by the cloud sinks.
type GCPConfig struct {
	ProjectID string
}

// StorageConfig names the bucket datasets are uploaded to.
type StorageConfig struct {
	Bucket string
	Prefix string
	// MirrorLatest also copies each artifact under "<prefix>/latest/".
	MirrorLatest bool
}

// Enabled reports whether uploads are configured.
func (c StorageConfig) Enabled() bool { return c.Bucket != "" }

// PubSubConfig names the topic completion events are published to.
type PubSubConfig struct {
	Topic string
}

// Enabled reports whether publishing is configured.
func (c PubSubConfig) Enabled() bool { return c.Topic != "" }

// FirestoreConfig stores run registry parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// Enabled reports whether run records are persisted.
func (c FirestoreConfig) Enabled() bool { return c.ProjectID != "" }

// SigningConfig holds the resolved manifest signing key.
type SigningConfig struct {
	Key string
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level string
}

// Diagnostic is a configuration problem that did not stop loading.
type Diagnostic struct {
	Source  string
	Field   string
	Message string
}

// String renders the diagnostic for logs.
func (d Diagnostic) String() string {
	if d.Field == "" {
		return fmt.Sprintf("%s: %s", d.Source, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Source, d.Field, d.Message)
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	configFile   string
	secret       SecretResolver
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = textutil.NormalizeStringMap(values)
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithConfigFile reads simulation parameters from a YAML, TOML or JSON file. Environment values
// still take precedence. Without this option ORDERSIM_CONFIG_FILE is consulted.
func WithConfigFile(path string) Option {
	return func(o *loaderOptions) {
		o.configFile = path
	}
}

// WithSecretResolver sets a custom secret resolver used for secret:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

func newLoaderOptions(opts []Option) loaderOptions {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret: SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
			return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
		}),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// EnvironmentValues returns the effective key/value environment map after applying the same precedence
// rules as Load (dotenv < OS env < explicit env map). Callers can use the result to initialise
// dependencies, such as the secret resolver, before invoking Load.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := newLoaderOptions(opts)

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string)
	merge := func(source map[string]string) {
		for key, value := range source {
			values[key] = value
		}
	}

	merge(dotEnvValues)
	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			parts := strings.SplitN(entry, "=", 2)
			if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
				continue
			}
			values[strings.TrimSpace(parts[0])] = parts[1]
		}
	}
	merge(options.envMap)

	return values, nil
}

// Load assembles the configuration by layering documented defaults, an optional config file,
// .env overrides, environment variables and secret manager lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := newLoaderOptions(opts)

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Simulation: services.DefaultSimulationSettings(),
		Output: OutputConfig{
			Dir:     defaultOutputDir,
			Formats: []string{"csv", "daily"},
			Locale:  defaultLocale,
		},
		Holidays: HolidayConfig{Country: defaultHolidayCountry},
		Server: ServerConfig{
			Addr:         defaultHTTPAddr,
			ReadTimeout:  defaultReadTimeout,
			WriteTimeout: defaultWriteTimeout,
			IdleTimeout:  defaultIdleTimeout,
		},
		Storage: StorageConfig{Prefix: defaultGCSPrefix},
		Log:     LogConfig{Level: defaultLogLevel},
	}

	env := &envReader{lookup: lookup}

	configFile := options.configFile
	if configFile == "" {
		env.String("CONFIG_FILE", &configFile)
	}
	if configFile != "" {
		cfg.Diagnostics = append(cfg.Diagnostics, applyFile(configFile, &cfg.Simulation)...)
	}

	sim := &cfg.Simulation
	env.Int64("SEED", &sim.Seed)
	env.Int("NUMBER_OF_SKUS", &sim.NumberOfSKUs)
	env.Int("NUMBER_OF_MONTHS", &sim.NumberOfMonths)
	env.Float("AVERAGE_MONTHLY_GROWTH", &sim.AverageMonthlyGrowth)
	env.Float("WEEKEND_BOOST_FACTOR", &sim.WeekendBoostFactor)
	env.Int("BASE_DAILY_ORDERS", &sim.BaseDailyOrders)
	env.Float("SEASONAL_FACTOR", &sim.SeasonalFactor)
	env.Float("RANDOM_NOISE_FACTOR", &sim.RandomNoiseFactor)
	env.Int("MIN_SALES_DAYS_PER_SKU", &sim.MinSalesDaysPerSKU)
	env.Int("MIN_TOTAL_UNITS_PER_SKU", &sim.MinTotalUnitsPerSKU)
	env.Bool("ENSURE_SKU_DISTRIBUTION", &sim.EnsureSKUDistribution)
	env.Bool("SKU_POPULARITY_WEIGHTS", &sim.SKUPopularityWeights)
	env.Bool("ENABLE_DISCOUNTS", &sim.EnableDiscounts)
	env.Discounts("DISCOUNT_RATIO_PROBABILITIES", &sim.DiscountProbabilities)
	env.Bool("DISCOUNTS_RENORMALIZE", &sim.RenormalizeDiscounts)
	env.Bool("ENABLE_QUANTITY_VARIETY", &sim.EnableQuantityVariety)
	env.Int("MIN_QUANTITY", &sim.MinQuantity)
	env.Int("MAX_QUANTITY", &sim.MaxQuantity)
	env.Date("END_DATE", &sim.EndDate)
	env.List("CUSTOMER_COUNTRIES", &sim.Countries)

	env.String("HOLIDAY_COUNTRY", &cfg.Holidays.Country)
	env.Holidays("EXTRA_HOLIDAYS", &cfg.Holidays.Extra)

	env.String("OUTPUT_DIR", &cfg.Output.Dir)
	env.List("OUTPUT_FORMATS", &cfg.Output.Formats)
	env.String("OUTPUT_LOCALE", &cfg.Output.Locale)
	env.Bool("SMOOTH_DAILY", &cfg.Output.SmoothDaily)

	env.String("HTTP_ADDR", &cfg.Server.Addr)
	env.Duration("HTTP_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	env.Duration("HTTP_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	env.Duration("HTTP_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)

	env.String("GCP_PROJECT_ID", &cfg.GCP.ProjectID)
	env.String("GCS_BUCKET", &cfg.Storage.Bucket)
	env.String("GCS_PREFIX", &cfg.Storage.Prefix)
	env.Bool("GCS_MIRROR_LATEST", &cfg.Storage.MirrorLatest)
	env.String("PUBSUB_TOPIC", &cfg.PubSub.Topic)
	env.String("FIRESTORE_PROJECT_ID", &cfg.Firestore.ProjectID)
	env.String("FIRESTORE_EMULATOR_HOST", &cfg.Firestore.EmulatorHost)
	env.String("MANIFEST_SIGNING_KEY", &cfg.Signing.Key)
	env.String("LOG_LEVEL", &cfg.Log.Level)

	// The registry shares the GCP project when only the emulator is configured.
	if cfg.Firestore.ProjectID == "" && cfg.Firestore.EmulatorHost != "" {
		cfg.Firestore.ProjectID = cfg.GCP.ProjectID
	}
	cfg.Holidays.Country = strings.ToUpper(cfg.Holidays.Country)

	resolved, err := resolveSecret(ctx, cfg.Signing.Key, options.secret)
	if err != nil {
		return Config{}, err
	}
	cfg.Signing.Key = resolved

	if err := validateConfig(cfg, env.invalid); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config, invalid []string) error {
	missing := append([]string(nil), invalid...)
	sim := cfg.Simulation

	if sim.NumberOfSKUs <= 0 {
		missing = append(missing, "Simulation.NumberOfSKUs")
	}
	if sim.NumberOfMonths <= 0 {
		missing = append(missing, "Simulation.NumberOfMonths")
	}
	if sim.BaseDailyOrders <= 0 {
		missing = append(missing, "Simulation.BaseDailyOrders")
	}
	if sim.RandomNoiseFactor < 0 {
		missing = append(missing, "Simulation.RandomNoiseFactor")
	}
	if sim.MinSalesDaysPerSKU < 0 {
		missing = append(missing, "Simulation.MinSalesDaysPerSKU")
	}
	if sim.MinTotalUnitsPerSKU < 0 {
		missing = append(missing, "Simulation.MinTotalUnitsPerSKU")
	}
	if sim.MinQuantity < 0 {
		missing = append(missing, "Simulation.MinQuantity")
	}
	if sim.MaxQuantity < sim.MinQuantity {
		missing = append(missing, "Simulation.MaxQuantity")
	}
	if strings.TrimSpace(cfg.Output.Dir) == "" {
		missing = append(missing, "Output.Dir")
	}
	if cfg.Holidays.Country != "" && cfg.Holidays.Country != defaultHolidayCountry {
		missing = append(missing, "Holidays.Country")
	}
	if cfg.PubSub.Enabled() && cfg.GCP.ProjectID == "" {
		missing = append(missing, "GCP.ProjectID")
	}
	if cfg.Server.ReadTimeout <= 0 || cfg.Server.WriteTimeout <= 0 || cfg.Server.IdleTimeout <= 0 {
		missing = append(missing, "Server.Timeouts")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if value == "" || !isSecretReference(value) {
		return value, nil
	}
	normalized := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		var secretErr *SecretError
		if errors.As(err, &secretErr) {
			return "", err
		}
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return secret, nil
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(parts[1]), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

// envReader overlays ORDERSIM_ variables onto already populated targets. Unparsable values leave
// the target untouched and are reported through invalid.
type envReader struct {
	lookup  func(string) (string, bool)
	invalid []string
}

func (r *envReader) raw(key string) (string, bool) {
	value, ok := r.lookup(envPrefix + key)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

func (r *envReader) fail(key string) {
	r.invalid = append(r.invalid, envPrefix+key)
}

func (r *envReader) String(key string, target *string) {
	if value, ok := r.raw(key); ok {
		*target = value
	}
}

func (r *envReader) Int(key string, target *int) {
	if value, ok := r.raw(key); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			r.fail(key)
			return
		}
		*target = parsed
	}
}

func (r *envReader) Int64(key string, target *int64) {
	if value, ok := r.raw(key); ok {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			r.fail(key)
			return
		}
		*target = parsed
	}
}

func (r *envReader) Float(key string, target *float64) {
	if value, ok := r.raw(key); ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			r.fail(key)
			return
		}
		*target = parsed
	}
}

func (r *envReader) Bool(key string, target *bool) {
	if value, ok := r.raw(key); ok {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			*target = true
		case "false", "0", "no", "off":
			*target = false
		default:
			r.fail(key)
		}
	}
}

func (r *envReader) Duration(key string, target *time.Duration) {
	if value, ok := r.raw(key); ok {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			r.fail(key)
			return
		}
		*target = parsed
	}
}

func (r *envReader) Date(key string, target *time.Time) {
	if value, ok := r.raw(key); ok {
		parsed, err := time.ParseInLocation(dateLayout, value, time.UTC)
		if err != nil {
			r.fail(key)
			return
		}
		*target = parsed
	}
}

func (r *envReader) List(key string, target *[]string) {
	if value, ok := r.raw(key); ok {
		*target = textutil.SplitList(value)
	}
}

// Discounts parses "ratio=probability" pairs such as "0.0=0.75,0.1=0.25".
func (r *envReader) Discounts(key string, target *map[float64]float64) {
	value, ok := r.raw(key)
	if !ok {
		return
	}
	parsed := make(map[float64]float64)
	for _, entry := range textutil.SplitList(value) {
		rawRatio, rawProb, ok := textutil.SplitPair(entry)
		if !ok {
			r.fail(key)
			return
		}
		ratio, rerr := strconv.ParseFloat(rawRatio, 64)
		prob, perr := strconv.ParseFloat(rawProb, 64)
		if rerr != nil || perr != nil {
			r.fail(key)
			return
		}
		parsed[ratio] = prob
	}
	if _, err := services.NewDiscountTable(parsed); err != nil {
		r.fail(key)
		return
	}
	*target = parsed
}

// Holidays parses "YYYY-MM-DD=Name" pairs.
func (r *envReader) Holidays(key string, target *[]calendar.Holiday) {
	value, ok := r.raw(key)
	if !ok {
		return
	}
	var out []calendar.Holiday
	for _, entry := range textutil.SplitList(value) {
		rawDate, name, _ := textutil.SplitPair(entry)
		date, err := time.ParseInLocation(dateLayout, rawDate, time.UTC)
		if err != nil {
			r.fail(key)
			return
		}
		if name == "" {
			name = "Holiday"
		}
		out = append(out, calendar.Holiday{Date: date, Name: name})
	}
	*target = out
}


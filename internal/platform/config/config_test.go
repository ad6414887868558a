package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/hanko-field/ordersim/internal/services"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if !reflect.DeepEqual(cfg.Simulation, services.DefaultSimulationSettings()) {
		t.Errorf("expected default simulation settings, got %+v", cfg.Simulation)
	}
	if cfg.Output.Dir != "out" {
		t.Errorf("expected default output dir, got %s", cfg.Output.Dir)
	}
	if len(cfg.Output.Formats) != 2 || cfg.Output.Formats[0] != "csv" || cfg.Output.Formats[1] != "daily" {
		t.Errorf("unexpected default formats %v", cfg.Output.Formats)
	}
	if cfg.Server.Addr != ":8080" || cfg.Server.WriteTimeout != 5*time.Minute {
		t.Errorf("unexpected server defaults %+v", cfg.Server)
	}
	if cfg.Holidays.Country != "US" {
		t.Errorf("expected US holidays, got %s", cfg.Holidays.Country)
	}
	if cfg.Storage.Enabled() || cfg.PubSub.Enabled() || cfg.Firestore.Enabled() {
		t.Errorf("expected every sink disabled by default")
	}
	if cfg.Storage.Prefix != "datasets" {
		t.Errorf("unexpected storage prefix %s", cfg.Storage.Prefix)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("unexpected log level %s", cfg.Log.Level)
	}
	if len(cfg.Diagnostics) != 0 {
		t.Errorf("expected no diagnostics, got %v", cfg.Diagnostics)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"ORDERSIM_SEED":                         "42",
		"ORDERSIM_NUMBER_OF_SKUS":               "25",
		"ORDERSIM_NUMBER_OF_MONTHS":             "6",
		"ORDERSIM_AVERAGE_MONTHLY_GROWTH":       "0.05",
		"ORDERSIM_BASE_DAILY_ORDERS":            "20",
		"ORDERSIM_ENSURE_SKU_DISTRIBUTION":      "false",
		"ORDERSIM_DISCOUNT_RATIO_PROBABILITIES": "0.0=0.8, 0.2=0.2",
		"ORDERSIM_DISCOUNTS_RENORMALIZE":        "yes",
		"ORDERSIM_MIN_QUANTITY":                 "1",
		"ORDERSIM_MAX_QUANTITY":                 "4",
		"ORDERSIM_END_DATE":                     "2024-06-30",
		"ORDERSIM_CUSTOMER_COUNTRIES":           "US, CA",
		"ORDERSIM_EXTRA_HOLIDAYS":               "2024-11-29=Black Friday,2024-12-24",
		"ORDERSIM_OUTPUT_DIR":                   "/tmp/datasets",
		"ORDERSIM_OUTPUT_FORMATS":               "csv,daily,xlsx",
		"ORDERSIM_SMOOTH_DAILY":                 "true",
		"ORDERSIM_HTTP_ADDR":                    ":9090",
		"ORDERSIM_HTTP_IDLE_TIMEOUT":            "2m",
		"ORDERSIM_GCP_PROJECT_ID":               "ordersim-dev",
		"ORDERSIM_GCS_BUCKET":                   "ordersim-datasets",
		"ORDERSIM_GCS_MIRROR_LATEST":            "true",
		"ORDERSIM_PUBSUB_TOPIC":                 "dataset-generated",
		"ORDERSIM_FIRESTORE_EMULATOR_HOST":      "localhost:8787",
		"ORDERSIM_MANIFEST_SIGNING_KEY":         "sm://ordersim/signing",
		"ORDERSIM_LOG_LEVEL":                    "debug",
	}

	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		if ref == "secret://ordersim/signing" {
			return "signing-key", nil
		}
		return "", errors.New("not found")
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	sim := cfg.Simulation
	if sim.Seed != 42 || sim.NumberOfSKUs != 25 || sim.NumberOfMonths != 6 || sim.BaseDailyOrders != 20 {
		t.Errorf("unexpected simulation overrides %+v", sim)
	}
	if sim.AverageMonthlyGrowth != 0.05 {
		t.Errorf("unexpected growth %v", sim.AverageMonthlyGrowth)
	}
	if sim.EnsureSKUDistribution {
		t.Errorf("expected corrector disabled")
	}
	if len(sim.DiscountProbabilities) != 2 || sim.DiscountProbabilities[0.2] != 0.2 {
		t.Errorf("unexpected discount table %v", sim.DiscountProbabilities)
	}
	if !sim.RenormalizeDiscounts {
		t.Errorf("expected renormalization enabled")
	}
	if sim.MinQuantity != 1 || sim.MaxQuantity != 4 {
		t.Errorf("unexpected quantity bounds %d..%d", sim.MinQuantity, sim.MaxQuantity)
	}
	if !sim.EndDate.Equal(time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected end date %s", sim.EndDate)
	}
	if len(sim.Countries) != 2 || sim.Countries[1] != "CA" {
		t.Errorf("unexpected countries %v", sim.Countries)
	}
	if len(cfg.Holidays.Extra) != 2 || cfg.Holidays.Extra[0].Name != "Black Friday" || cfg.Holidays.Extra[1].Name != "Holiday" {
		t.Errorf("unexpected extra holidays %+v", cfg.Holidays.Extra)
	}
	if cfg.Output.Dir != "/tmp/datasets" || len(cfg.Output.Formats) != 3 || !cfg.Output.SmoothDaily {
		t.Errorf("unexpected output config %+v", cfg.Output)
	}
	if cfg.Server.Addr != ":9090" || cfg.Server.IdleTimeout != 2*time.Minute {
		t.Errorf("unexpected server config %+v", cfg.Server)
	}
	if !cfg.Storage.Enabled() || !cfg.PubSub.Enabled() {
		t.Errorf("expected storage and pubsub enabled")
	}
	if !cfg.Storage.MirrorLatest || cfg.Storage.Prefix != "datasets" {
		t.Errorf("unexpected storage config %+v", cfg.Storage)
	}
	if cfg.Firestore.ProjectID != "ordersim-dev" {
		t.Errorf("expected firestore project to default to gcp project with emulator, got %s", cfg.Firestore.ProjectID)
	}
	if cfg.Signing.Key != "signing-key" {
		t.Errorf("expected resolved signing key, got %s", cfg.Signing.Key)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("unexpected log level %s", cfg.Log.Level)
	}
}

func TestLoadYAMLFileWithEnvPrecedence(t *testing.T) {
	path := writeFile(t, "config.yaml", `
data_generation:
  number_of_skus: 20
  number_of_months: 6
  weekend_boost_factor: 1.5
prophet_optimization:
  min_sales_days_per_sku: 10
  sku_popularity_weights: false
discounts:
  enable_discounts: true
  discount_ratio_probabilities:
    "0.00": 0.9
    "0.20": 0.1
quantity_settings:
  min_quantity: 1
  max_quantity: 4
`)

	env := map[string]string{"ORDERSIM_NUMBER_OF_SKUS": "30"}
	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithConfigFile(path))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	sim := cfg.Simulation
	if sim.NumberOfSKUs != 30 {
		t.Errorf("expected env to override file, got %d", sim.NumberOfSKUs)
	}
	if sim.NumberOfMonths != 6 || sim.WeekendBoostFactor != 1.5 || sim.MinSalesDaysPerSKU != 10 {
		t.Errorf("expected file values, got %+v", sim)
	}
	if sim.SKUPopularityWeights {
		t.Errorf("expected popularity weights disabled by file")
	}
	if len(sim.DiscountProbabilities) != 2 || sim.DiscountProbabilities[0] != 0.9 {
		t.Errorf("unexpected discount table %v", sim.DiscountProbabilities)
	}
	if sim.MinQuantity != 1 || sim.MaxQuantity != 4 {
		t.Errorf("unexpected quantity bounds %d..%d", sim.MinQuantity, sim.MaxQuantity)
	}
	if sim.MinTotalUnitsPerSKU != 50 {
		t.Errorf("expected untouched default floor, got %d", sim.MinTotalUnitsPerSKU)
	}
	if len(cfg.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics %v", cfg.Diagnostics)
	}
}

func TestLoadTOMLFile(t *testing.T) {
	path := writeFile(t, "config.toml", `
[data_generation]
number_of_skus = 12
seasonal_factor = 0.5
end_date = "2024-03-31"

[discounts]
enable_discounts = false

[discounts.discount_ratio_probabilities]
"0.00" = 0.5
"0.10" = 0.5
`)

	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(""), WithConfigFile(path))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	sim := cfg.Simulation
	if sim.NumberOfSKUs != 12 || sim.SeasonalFactor != 0.5 {
		t.Errorf("unexpected toml values %+v", sim)
	}
	if sim.EnableDiscounts {
		t.Errorf("expected discounts disabled")
	}
	if sim.DiscountProbabilities[0.1] != 0.5 {
		t.Errorf("unexpected discount table %v", sim.DiscountProbabilities)
	}
	if sim.EndDate.Format("2006-01-02") != "2024-03-31" {
		t.Errorf("unexpected end date %s", sim.EndDate)
	}
}

func TestLoadConfigFileFromEnv(t *testing.T) {
	path := writeFile(t, "config.json", `{"data_generation": {"number_of_months": 3}}`)
	env := map[string]string{"ORDERSIM_CONFIG_FILE": path}

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Simulation.NumberOfMonths != 3 {
		t.Errorf("expected months from json file, got %d", cfg.Simulation.NumberOfMonths)
	}
}

func TestLoadMissingOrMalformedFileFallsBackToDefaults(t *testing.T) {
	malformed := writeFile(t, "broken.yaml", "data_generation: [unclosed\n")
	unsupported := writeFile(t, "config.ini", "number_of_skus=3\n")
	cases := map[string]string{
		"missing":     filepath.Join(t.TempDir(), "absent.yaml"),
		"malformed":   malformed,
		"unsupported": unsupported,
	}

	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(""), WithConfigFile(path))
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			if !reflect.DeepEqual(cfg.Simulation, services.DefaultSimulationSettings()) {
				t.Errorf("expected defaults, got %+v", cfg.Simulation)
			}
			if len(cfg.Diagnostics) != 1 {
				t.Fatalf("expected one diagnostic, got %v", cfg.Diagnostics)
			}
			if !strings.Contains(cfg.Diagnostics[0].String(), "using defaults") {
				t.Errorf("unexpected diagnostic %s", cfg.Diagnostics[0])
			}
		})
	}
}

func TestLoadInvalidFileFieldsKeepDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
data_generation:
  number_of_skus: -3
  number_of_months: 4
discounts:
  discount_ratio_probabilities:
    "abc": 0.5
    "0.00": 1.0
quantity_settings:
  min_quantity: 6
  max_quantity: 2
`)

	cfg, err := Load(context.Background(), WithoutSystemEnv(), WithEnvFile(""), WithConfigFile(path))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	sim := cfg.Simulation
	if sim.NumberOfSKUs != 50 {
		t.Errorf("expected default sku count, got %d", sim.NumberOfSKUs)
	}
	if sim.NumberOfMonths != 4 {
		t.Errorf("expected valid sibling field applied, got %d", sim.NumberOfMonths)
	}
	if sim.MinQuantity != 0 || sim.MaxQuantity != 8 {
		t.Errorf("expected default quantity bounds, got %d..%d", sim.MinQuantity, sim.MaxQuantity)
	}
	if len(sim.DiscountProbabilities) != 1 || sim.DiscountProbabilities[0] != 1.0 {
		t.Errorf("expected the valid discount entry only, got %v", sim.DiscountProbabilities)
	}

	fields := map[string]bool{}
	for _, d := range cfg.Diagnostics {
		fields[d.Field] = true
	}
	for _, want := range []string{"data_generation.number_of_skus", "discounts.discount_ratio_probabilities", "quantity_settings"} {
		if !fields[want] {
			t.Errorf("expected diagnostic for %s, got %v", want, cfg.Diagnostics)
		}
	}
}

func TestLoadInvalidEnvValues(t *testing.T) {
	env := map[string]string{
		"ORDERSIM_NUMBER_OF_SKUS":               "many",
		"ORDERSIM_MIN_QUANTITY":                 "5",
		"ORDERSIM_MAX_QUANTITY":                 "2",
		"ORDERSIM_DISCOUNT_RATIO_PROBABILITIES": "1.5=1",
		"ORDERSIM_PUBSUB_TOPIC":                 "dataset-generated",
		"ORDERSIM_HOLIDAY_COUNTRY":              "jp",
	}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	got := strings.Join(validation.Fields(), ",")
	for _, want := range []string{
		"ORDERSIM_NUMBER_OF_SKUS",
		"ORDERSIM_DISCOUNT_RATIO_PROBABILITIES",
		"Simulation.MaxQuantity",
		"GCP.ProjectID",
		"Holidays.Country",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %s in fields %s", want, got)
		}
	}
}

func TestLoadDotEnvFallback(t *testing.T) {
	envPath := writeFile(t, ".env.test", "ORDERSIM_NUMBER_OF_SKUS=7\nexport ORDERSIM_OUTPUT_DIR=\"dot-out\"\n# comment\n")

	cfg, err := Load(context.Background(), WithEnvFile(envPath), WithoutSystemEnv(), WithEnvMap(map[string]string{
		"ORDERSIM_OUTPUT_DIR": "override-out",
	}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Simulation.NumberOfSKUs != 7 {
		t.Errorf("expected sku count from dotenv, got %d", cfg.Simulation.NumberOfSKUs)
	}
	if cfg.Output.Dir != "override-out" {
		t.Errorf("expected env map to override dotenv, got %s", cfg.Output.Dir)
	}
}

func TestLoadSecretResolverError(t *testing.T) {
	env := map[string]string{"ORDERSIM_MANIFEST_SIGNING_KEY": "secret://missing"}

	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected secret resolution error, got nil")
	}
	var secretErr *SecretError
	if !errors.As(err, &secretErr) {
		t.Fatalf("expected SecretError, got %T", err)
	}
	if secretErr.Ref != "secret://missing" {
		t.Errorf("unexpected secret ref %s", secretErr.Ref)
	}
	if !errors.Is(err, errSecretResolverNotConfigured) {
		t.Errorf("expected resolver not configured cause, got %v", err)
	}
}

func TestEnvironmentValuesMergesSources(t *testing.T) {
	envPath := writeFile(t, ".env.test", "ORDERSIM_GCP_PROJECT_ID=dot-project\nORDERSIM_SECRET_FALLBACK_FILE=.dot.local\n")

	t.Setenv("ORDERSIM_GCP_PROJECT_ID", "os-project")
	t.Setenv("ORDERSIM_LOG_LEVEL", "warn")

	values, err := EnvironmentValues(WithEnvFile(envPath), WithEnvMap(map[string]string{
		"ORDERSIM_GCP_PROJECT_ID": " override-project ",
	}))
	if err != nil {
		t.Fatalf("EnvironmentValues returned error: %v", err)
	}

	if got := values["ORDERSIM_GCP_PROJECT_ID"]; got != "override-project" {
		t.Fatalf("expected override project, got %q", got)
	}
	if got := values["ORDERSIM_SECRET_FALLBACK_FILE"]; got != ".dot.local" {
		t.Fatalf("expected dotenv fallback file, got %s", got)
	}
	if got := values["ORDERSIM_LOG_LEVEL"]; got != "warn" {
		t.Fatalf("expected system env value, got %s", got)
	}
}

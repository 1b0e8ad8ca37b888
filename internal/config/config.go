// Package config defines all configuration for the picking-plan builder.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via PULPO_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	DryRun         bool                 `mapstructure:"dry_run"`
	WMS            WMSConfig            `mapstructure:"wms"`
	ArticleService ArticleServiceConfig `mapstructure:"articleservice"`
	Roster         RosterConfig         `mapstructure:"roster"`
	Run            RunConfig            `mapstructure:"run"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Alert          AlertConfig          `mapstructure:"alert"`
}

// WMSConfig holds the WMS base URLs, credentials, and client tuning.
// Password is never set from YAML — only from the PULPO_PASSWORD env var.
type WMSConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	SandboxURL   string        `mapstructure:"sandbox_url"`
	UseSandbox   bool          `mapstructure:"use_sandbox"`
	Login        string        `mapstructure:"login"`
	Password     string        `mapstructure:"-"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxCalls     int           `mapstructure:"max_calls"`
	TimeWindow   time.Duration `mapstructure:"time_window"`
	Retries      int           `mapstructure:"retries"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"`
	WarehouseID  string        `mapstructure:"warehouse_id"`
}

// ArticleServiceConfig points at the secondary article-master service used
// to resolve units-per-pallet when the WMS omits it.
type ArticleServiceConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RosterConfig configures picker-roster persistence (Azure Blob) and
// periodic refresh from a spreadsheet (Google Sheets).
//
//   - BlobConnectionString: read from PULPO_BLOB_CONNECTION_STRING; its
//     absence degrades to the default empty roster rather than aborting.
//   - SheetID / SheetRanges: source for the periodic refresh.
//   - UpdateHours: hours of day (0-23) during which a refresh is attempted.
type RosterConfig struct {
	BlobContainer        string            `mapstructure:"blob_container"`
	BlobName             string            `mapstructure:"blob_name"`
	BlobConnectionString string            `mapstructure:"-"`
	SheetID              string            `mapstructure:"sheet_id"`
	SheetRanges          map[string]string `mapstructure:"sheet_ranges"`
	UpdateHours          []int             `mapstructure:"update_hours"`
}

// RunConfig carries the tunable constants that drive a single orchestrator
// run — every constant hardcoded in the original implementation's
// config.py becomes a field here so operators can tune it without a code
// change.
type RunConfig struct {
	SkusToBatchPath       string  `mapstructure:"skus_to_batch_path"`
	NightCleaningHours    []int   `mapstructure:"night_cleaning_hours"`
	SweepingHours         []int   `mapstructure:"sweeping_hours"`
	RunningDryNumOrders   int     `mapstructure:"running_dry_num_orders"`
	RunningDryDenominator float64 `mapstructure:"running_dry_denominator"`

	MinBatchSize     int `mapstructure:"min_batch_size"`
	MaxBatchSize     int `mapstructure:"max_batch_size"`
	MinBatchSizeSeni int `mapstructure:"min_batch_size_seni"`

	NonPrioCartThreshold int `mapstructure:"non_prio_cart_threshold"`
	SweepingMinOrders    int `mapstructure:"sweeping_min_orders"`

	NormalPriorityValue int      `mapstructure:"normal_priority_value"`
	PrioSalesChannels   []string `mapstructure:"prio_sales_channels"`
	MaxWaitTimeHours    int      `mapstructure:"max_wait_time_hours"`
	WorkingDays         []int    `mapstructure:"working_days"`

	PaletteLabelShare       float64 `mapstructure:"palette_label_share"`
	SpecialShippingMethods  []int   `mapstructure:"special_shipping_methods"`
	PartnerkundeChannels    []string `mapstructure:"partnerkunde_sales_channels"`
	SeniManufacturerID      int     `mapstructure:"seni_manufacturer_id"`

	// CartSizeMinOrders/CartSizeMaxOrders bound the S/M1/M2/L package
	// sizes, which the original assigns identical placeholder min/max
	// values. XL and Palette are fixed at min=1/max=1 in internal/cart
	// since "this package size ships alone" is a physical invariant, not
	// an operator dial.
	CartSizeMinOrders int `mapstructure:"cart_size_min_orders"`
	CartSizeMaxOrders int `mapstructure:"cart_size_max_orders"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AlertConfig points at the Teams incoming webhook used for operator
// alerts (missing pallet capacity, roster refresh failures).
type AlertConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: PULPO_PASSWORD, PULPO_BLOB_CONNECTION_STRING.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("PULPO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.WMS.Password = os.Getenv("PULPO_PASSWORD")
	cfg.Roster.BlobConnectionString = os.Getenv("PULPO_BLOB_CONNECTION_STRING")
	if os.Getenv("PULPO_DRY_RUN") == "true" || os.Getenv("PULPO_DRY_RUN") == "1" {
		cfg.DryRun = true
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.WMS.BaseURL == "" {
		return fmt.Errorf("wms.base_url is required")
	}
	if c.WMS.Login == "" {
		return fmt.Errorf("wms.login is required")
	}
	if c.WMS.Password == "" {
		return fmt.Errorf("wms password is required (set PULPO_PASSWORD)")
	}
	if c.WMS.MaxCalls <= 0 {
		return fmt.Errorf("wms.max_calls must be > 0")
	}
	if c.WMS.TimeWindow <= 0 {
		return fmt.Errorf("wms.time_window must be > 0")
	}
	if c.Run.MinBatchSize <= 0 {
		return fmt.Errorf("run.min_batch_size must be > 0")
	}
	if c.Run.MaxBatchSize < c.Run.MinBatchSize {
		return fmt.Errorf("run.max_batch_size must be >= run.min_batch_size")
	}
	if c.Run.NonPrioCartThreshold <= 0 {
		return fmt.Errorf("run.non_prio_cart_threshold must be > 0")
	}
	if c.Run.SkusToBatchPath == "" {
		return fmt.Errorf("run.skus_to_batch_path is required")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"FinSignal/internal/services/scoring"
	"FinSignal/pkg/util"
)

// CurrentVersion is the only config layout this build understands.
const CurrentVersion = 1

type Config struct {
	Version     int      `yaml:"version" default:"1"`
	Environment string   `yaml:"environment" default:"development" validate:"required"`
	Symbols     []string `yaml:"symbols" validate:"required,min=1,dive,required"`
	// Sinks lists where generated signals go.
	Sinks []string `yaml:"sinks" default:"[\"kafka\"]" validate:"dive,oneof=kafka clickhouse postgres"`

	Server struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lt=65536"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"120s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
		DisableCORS     bool          `yaml:"disable_cors"`
	} `yaml:"server"`

	Metrics struct {
		Disabled bool   `yaml:"disabled"`
		Path     string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	Logging struct {
		Level              string        `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format             string        `yaml:"format" default:"json" validate:"oneof=json console"`
		CollectorTopic     string        `yaml:"collector_topic"`
		CollectorInterval  time.Duration `yaml:"collector_interval" default:"10s"`
		CollectorThreshold int           `yaml:"collector_threshold" default:"100"`
	} `yaml:"logging"`

	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		MaxAttempts  int      `yaml:"max_attempts" default:"3"`
		SignalsTopic string   `yaml:"signals_topic" default:"finsignal.signals"`
		BarsTopic    string   `yaml:"bars_topic" default:"finsignal.bars"`

		BatchSize    int           `yaml:"batch_size" default:"100"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"1s"`

		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id" default:"finsignal-ingest"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"100"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`

	ClickHouse struct {
		Host        string        `yaml:"host"`
		Port        int           `yaml:"port" default:"9000"`
		Database    string        `yaml:"database" default:"finsignal"`
		User        string        `yaml:"user" default:"default"`
		Password    string        `yaml:"password"`
		UseHTTP     bool          `yaml:"use_http"`
		AsyncInsert bool          `yaml:"async_insert"`
		SkipSchema  bool          `yaml:"skip_schema"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout time.Duration `yaml:"read_timeout" default:"10s"`
	} `yaml:"clickhouse"`

	Postgres struct {
		DSN        string `yaml:"dsn"`
		SkipSchema bool   `yaml:"skip_schema"`
	} `yaml:"postgres"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"finsignal"`

		PoolSize     int           `yaml:"pool_size" default:"10"`
		MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
		PoolTimeout  time.Duration `yaml:"pool_timeout" default:"30s"`
	} `yaml:"redis"`

	Cache struct {
		IndicatorTTL  time.Duration `yaml:"indicator_ttl" default:"6h"`
		MemoryMaxSize int           `yaml:"memory_max_size" default:"5000"`
		CleanupEvery  time.Duration `yaml:"cleanup_every" default:"1m"`
	} `yaml:"cache"`

	Sentiment struct {
		URL             string        `yaml:"url"`
		APIKey          string        `yaml:"api_key"`
		Timeout         time.Duration `yaml:"timeout" default:"5s"`
		RatePerSecond   float64       `yaml:"rate_per_second" default:"5"`
		Burst           int           `yaml:"burst" default:"10"`
		BreakerFailures uint32        `yaml:"breaker_failures" default:"5"`
		BreakerTimeout  time.Duration `yaml:"breaker_timeout" default:"30s"`
		Retries         int           `yaml:"retries" default:"2"`
		CacheTTL        time.Duration `yaml:"cache_ttl" default:"5m"`
	} `yaml:"sentiment"`

	Generator struct {
		Workers         int           `yaml:"workers" default:"4" validate:"gt=0"`
		Lookback        int           `yaml:"lookback" default:"200" validate:"gte=50"`
		RegimeTimeframe string        `yaml:"regime_timeframe" default:"1d" validate:"oneof=15m 1h 4h 1d"`
		LockTTL         time.Duration `yaml:"lock_ttl" default:"2m"`
		LockWait        time.Duration `yaml:"lock_wait" default:"30s"`
	} `yaml:"generator"`

	Schedule struct {
		// GenerateCron is a 5-field cron spec; empty disables scheduling.
		GenerateCron string `yaml:"generate_cron"`
	} `yaml:"schedule"`

	Indicators struct {
		RSIPeriod  int `yaml:"rsi_period" default:"14" validate:"gt=1"`
		MACDFast   int `yaml:"macd_fast" default:"12" validate:"gt=0"`
		MACDSlow   int `yaml:"macd_slow" default:"26" validate:"gt=0"`
		MACDSignal int `yaml:"macd_signal" default:"9" validate:"gt=0"`
		MAFast     int `yaml:"ma_fast" default:"20" validate:"gt=0"`
		MASlow     int `yaml:"ma_slow" default:"50" validate:"gt=0"`
		ATRPeriod  int `yaml:"atr_period" default:"14" validate:"gt=0"`
	} `yaml:"indicators"`

	Structure struct {
		VolumeWindow       int     `yaml:"volume_window" default:"10" validate:"gt=0"`
		BOSLookback        int     `yaml:"bos_lookback" default:"20" validate:"gt=0"`
		BOSMinBreak        float64 `yaml:"bos_min_break" default:"0.001"`
		BOSVolumeMult      float64 `yaml:"bos_volume_mult" default:"1.2"`
		CHoCHLookback      int     `yaml:"choch_lookback" default:"50" validate:"gt=0"`
		CHoCHMinReversal   float64 `yaml:"choch_min_reversal" default:"0.002"`
		CHoCHVolumeMult    float64 `yaml:"choch_volume_mult" default:"1.2"`
		CHoCHConfirmBars   int     `yaml:"choch_confirm_bars" default:"3" validate:"gt=0"`
		OBMinBody          float64 `yaml:"ob_min_body" default:"0.02"`
		OBMinConsolidation int     `yaml:"ob_min_consolidation" default:"3"`
		OBMaxRange         float64 `yaml:"ob_max_range" default:"0.01"`
		OBVolumeMult       float64 `yaml:"ob_volume_mult" default:"1.5"`
		FVGMinGap          float64 `yaml:"fvg_min_gap" default:"0.0005"`
		FVGVolumeMult      float64 `yaml:"fvg_volume_mult" default:"1.2"`
		SweepMinExceed     float64 `yaml:"sweep_min_exceed" default:"0.0005"`
		SweepVolumeMult    float64 `yaml:"sweep_volume_mult" default:"1.8"`
		SweepSwingBars     int     `yaml:"sweep_swing_bars" default:"3"`
		ConfidenceCap      float64 `yaml:"confidence_cap" default:"0.95" validate:"gt=0,lte=1"`
	} `yaml:"structure"`

	Entry struct {
		ContextWindow     int     `yaml:"context_window" default:"20" validate:"gt=1"`
		ContextMinSlope   float64 `yaml:"context_min_slope" default:"0.001"`
		CHoCHLookback     int     `yaml:"choch_lookback" default:"30" validate:"gt=0"`
		TriggerLookback   int     `yaml:"trigger_lookback" default:"3" validate:"gt=0"`
		LongRSIMin        float64 `yaml:"long_rsi_min" default:"20"`
		LongRSIMax        float64 `yaml:"long_rsi_max" default:"50"`
		ShortRSIMin       float64 `yaml:"short_rsi_min" default:"50"`
		ShortRSIMax       float64 `yaml:"short_rsi_max" default:"80"`
		VolumeWindow      int     `yaml:"volume_window" default:"10" validate:"gt=0"`
		PatternLookback   int     `yaml:"pattern_lookback" default:"30" validate:"gt=0"`
		StopLookback      int     `yaml:"stop_lookback" default:"5" validate:"gt=0"`
		StopATRBuffer     float64 `yaml:"stop_atr_buffer" default:"0.5" validate:"gte=0"`
		TargetATRMultiple float64 `yaml:"target_atr_multiple" default:"3.0" validate:"gt=0"`
	} `yaml:"entry"`

	Regime struct {
		Window         int     `yaml:"window" default:"50" validate:"gt=2"`
		VolUpper       float64 `yaml:"vol_upper" default:"0.80"`
		VolLower       float64 `yaml:"vol_lower" default:"0.20"`
		TrendThreshold float64 `yaml:"trend_threshold" default:"0.002" validate:"gt=0"`
	} `yaml:"regime"`

	Scoring struct {
		WeightsVersion    int                `yaml:"weights_version" default:"1"`
		Weights           map[string]float64 `yaml:"weights" default:"{\"technical\":0.35,\"sentiment\":0.25,\"news\":0.15,\"volume\":0.15,\"pattern\":0.10}"`
		MinConfidence     float64            `yaml:"min_confidence" default:"0.70" validate:"gte=0,lte=1"`
		MinRiskReward     float64            `yaml:"min_risk_reward" default:"3.0" validate:"gt=0"`
		TopK              int                `yaml:"top_k" default:"10" validate:"gt=0"`
		GapPenalty        float64            `yaml:"gap_penalty" default:"0.85" validate:"gt=0,lte=1"`
		VolumeRatioCap    float64            `yaml:"volume_ratio_cap" default:"3.0" validate:"gt=1"`
		PatternMultiplier map[string]float64 `yaml:"pattern_multiplier" default:"{\"SIDEWAYS\":0.5,\"VOLATILE\":0.8}"`
	} `yaml:"scoring"`

	Dedup struct {
		PriceTolerance float64       `yaml:"price_tolerance" default:"0.02" validate:"gte=0"`
		Window         time.Duration `yaml:"window" default:"24h"`
	} `yaml:"dedup"`

	Backtest struct {
		Mode            string        `yaml:"mode" default:"pattern" validate:"oneof=pattern fixed_percentage"`
		Expiry          time.Duration `yaml:"expiry" default:"168h"`
		TieBreak        string        `yaml:"tie_break" default:"conservative" validate:"oneof=conservative optimistic"`
		FixedTargetPct  float64       `yaml:"fixed_target_pct" default:"0.60" validate:"gt=0"`
		FixedStopPct    float64       `yaml:"fixed_stop_pct" default:"0.40" validate:"gt=0,lt=1"`
		ReplayTimeframe string        `yaml:"replay_timeframe" default:"1h" validate:"oneof=15m 1h 4h 1d"`
		Workers         int           `yaml:"workers" default:"8" validate:"gt=0"`
		MaxSteps        int           `yaml:"max_steps" default:"5000" validate:"gt=0"`
	} `yaml:"backtest"`
}

var validate = validator.New()

// Load reads, defaults and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads an optional .env file, then the YAML config, then
// applies environment overrides and validates again.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Symbols = util.UpperAll(util.SplitList(v))
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("SENTIMENT_URL"); v != "" {
		c.Sentiment.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}

// Validate runs tag validation and cross-field checks.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version %d (want %d)", c.Version, CurrentVersion)
	}
	if err := validate.Struct(c); err != nil {
		return err
	}

	var errs []error
	if _, err := scoring.ParseWeights(c.Scoring.WeightsVersion, c.Scoring.Weights); err != nil {
		errs = append(errs, fmt.Errorf("scoring.weights: %w", err))
	}
	if c.Indicators.MACDFast >= c.Indicators.MACDSlow {
		errs = append(errs, errors.New("indicators.macd_fast must be < macd_slow"))
	}
	if c.Indicators.MAFast >= c.Indicators.MASlow {
		errs = append(errs, errors.New("indicators.ma_fast must be < ma_slow"))
	}
	if c.Regime.VolLower >= c.Regime.VolUpper {
		errs = append(errs, errors.New("regime.vol_lower must be < vol_upper"))
	}
	if c.Entry.LongRSIMin >= c.Entry.LongRSIMax || c.Entry.ShortRSIMin >= c.Entry.ShortRSIMax {
		errs = append(errs, errors.New("entry rsi bands must have min < max"))
	}
	for _, s := range c.Sinks {
		switch s {
		case "kafka":
			if len(c.Kafka.Brokers) == 0 {
				errs = append(errs, errors.New("sink kafka requires kafka.brokers"))
			}
		case "clickhouse":
			if c.ClickHouse.Host == "" {
				errs = append(errs, errors.New("sink clickhouse requires clickhouse.host"))
			}
		case "postgres":
			if c.Postgres.DSN == "" {
				errs = append(errs, errors.New("sink postgres requires postgres.dsn"))
			}
		}
	}
	if c.Kafka.Consumer.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.consumer requires kafka.brokers"))
	}
	return errors.Join(errs...)
}

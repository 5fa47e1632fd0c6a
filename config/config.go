package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const defaultPath = "."

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port     int `json:"port" yaml:"port"`
		Timeouts struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	SecretKey struct {
		Access string `json:"access" yaml:"access"`
	} `json:"secretKey" yaml:"secretKey"`

	// Auth toggles the bearer-token middleware on mutating routes.
	Auth *AuthConfig `json:"auth" yaml:"auth"`

	// Tracking holds every threshold of the validation/ingest pipeline.
	Tracking *TrackingConfig `json:"tracking" yaml:"tracking"`

	// Stream configures WebSocket delivery to live subscribers.
	Stream *StreamConfig `json:"stream" yaml:"stream"`

	// Archive configures the durable event sink.
	Archive *ArchiveConfig `json:"archive" yaml:"archive"`

	// PubSub configures the outbound event bridge for finished walks.
	PubSub *PubSubConfig `json:"pubsub" yaml:"pubsub"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// AuthConfig defines authentication-related configuration
type AuthConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// TrackingConfig defines the tunable thresholds of the tracking core.
// The validator's coarse sanity ceiling and the walking-speed anomaly
// heuristic are deliberately distinct knobs.
type TrackingConfig struct {
	// MaxAccuracyMeters is the worst horizontal accuracy a sample may carry.
	MaxAccuracyMeters float64 `json:"maxAccuracyMeters" yaml:"maxAccuracyMeters"`

	// DegradedAccuracyMeters is the widened tolerance applied while a
	// session is in signal-loss degradation.
	DegradedAccuracyMeters float64 `json:"degradedAccuracyMeters" yaml:"degradedAccuracyMeters"`

	// SanitySpeedMps is the validator's implied-speed ceiling in m/s.
	SanitySpeedMps float64 `json:"sanitySpeedMps" yaml:"sanitySpeedMps"`

	// WalkingSpeedMps is the domain anomaly threshold in m/s.
	WalkingSpeedMps float64 `json:"walkingSpeedMps" yaml:"walkingSpeedMps"`

	// WalkingSpeedStreak is how many consecutive fast samples raise the anomaly.
	WalkingSpeedStreak int `json:"walkingSpeedStreak" yaml:"walkingSpeedStreak"`

	// ThrottleInterval coalesces samples arriving faster than this.
	ThrottleInterval time.Duration `json:"throttleInterval" yaml:"throttleInterval"`

	// SignalLossWindow is how long without an accepted sample before the
	// signal-loss anomaly fires.
	SignalLossWindow time.Duration `json:"signalLossWindow" yaml:"signalLossWindow"`

	// SignalLossCeiling is the hard outage ceiling after which the session
	// is aborted.
	SignalLossCeiling time.Duration `json:"signalLossCeiling" yaml:"signalLossCeiling"`

	// StartGraceWindow is how early a scheduled session may be started.
	StartGraceWindow time.Duration `json:"startGraceWindow" yaml:"startGraceWindow"`

	// MaxRoutePoints bounds the in-memory route length per session.
	MaxRoutePoints int `json:"maxRoutePoints" yaml:"maxRoutePoints"`

	// RetentionWindow is how long terminal sessions remain readable before
	// the registry archives them.
	RetentionWindow time.Duration `json:"retentionWindow" yaml:"retentionWindow"`
}

// StreamConfig defines WebSocket delivery configuration
type StreamConfig struct {
	// SubscriberBuffer is the bounded per-subscriber channel size.
	SubscriberBuffer int `json:"subscriberBuffer" yaml:"subscriberBuffer"`

	WriteWait      time.Duration `json:"writeWait" yaml:"writeWait"`
	PongWait       time.Duration `json:"pongWait" yaml:"pongWait"`
	PingPeriod     time.Duration `json:"pingPeriod" yaml:"pingPeriod"`
	MaxMessageSize int64         `json:"maxMessageSize" yaml:"maxMessageSize"`
}

// ArchiveConfig defines the durable event sink configuration
type ArchiveConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// PubSubConfig defines Pub/Sub configuration for the outbound event bridge
type PubSubConfig struct {
	// Provider type: "local" for local HTTP or "google" for Google Pub/Sub
	Provider string `json:"provider" yaml:"provider"`

	// Google Cloud project ID (for google provider)
	ProjectID string `json:"projectId" yaml:"projectId"`

	// Pub/Sub topic ID (for google provider)
	TopicID string `json:"topicId" yaml:"topicId"`

	// Local HTTP endpoint for development (for local provider)
	LocalEndpoint string `json:"localEndpoint" yaml:"localEndpoint"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			searchPaths = append(searchPaths, filepath.Join(pwd, path))
		}
	}

	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables, aligning each segment with existing YAML
	// keys. Example: TRACKING_SANITYSPEEDMPS -> tracking.sanitySpeedMps
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			return canonicalizeEnvKey(k, existingConfigMap), v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	cfg.Tracking = cfg.Tracking.withDefaults()
	cfg.Stream = cfg.Stream.withDefaults()

	return cfg, nil
}

// withDefaults fills unset tracking thresholds with the service defaults.
func (c *TrackingConfig) withDefaults() *TrackingConfig {
	if c == nil {
		c = &TrackingConfig{}
	}
	if c.MaxAccuracyMeters <= 0 {
		c.MaxAccuracyMeters = 50
	}
	if c.DegradedAccuracyMeters <= 0 {
		c.DegradedAccuracyMeters = 100
	}
	if c.SanitySpeedMps <= 0 {
		c.SanitySpeedMps = 15
	}
	if c.WalkingSpeedMps <= 0 {
		c.WalkingSpeedMps = 3
	}
	if c.WalkingSpeedStreak <= 0 {
		c.WalkingSpeedStreak = 5
	}
	if c.ThrottleInterval <= 0 {
		c.ThrottleInterval = 5 * time.Second
	}
	if c.SignalLossWindow <= 0 {
		c.SignalLossWindow = time.Minute
	}
	if c.SignalLossCeiling <= 0 {
		c.SignalLossCeiling = 5 * time.Minute
	}
	if c.StartGraceWindow <= 0 {
		c.StartGraceWindow = 10 * time.Minute
	}
	if c.MaxRoutePoints <= 0 {
		c.MaxRoutePoints = 1000
	}
	if c.RetentionWindow <= 0 {
		c.RetentionWindow = time.Hour
	}

	return c
}

func (c *StreamConfig) withDefaults() *StreamConfig {
	if c == nil {
		c = &StreamConfig{}
	}
	if c.SubscriberBuffer <= 0 {
		c.SubscriberBuffer = 16
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingPeriod <= 0 {
		c.PingPeriod = 54 * time.Second
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 4096
	}

	return c
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

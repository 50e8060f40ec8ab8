// Package config loads and validates the runtime configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/ayusman/cardsight/internal/grouping"
	"github.com/ayusman/cardsight/internal/ledger"
	"github.com/ayusman/cardsight/internal/tracker"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CARDSIGHT_"

// Detection holds the thresholds of the per-tick pipeline.
type Detection struct {
	SuppressionThreshold float64 `yaml:"suppression_threshold" json:"suppression_threshold"`
	GroupingThreshold    float64 `yaml:"grouping_threshold" json:"grouping_threshold"`
	MatchThreshold       float64 `yaml:"match_threshold" json:"match_threshold"`
	ConfidenceThreshold  float64 `yaml:"confidence_threshold" json:"confidence_threshold"`
	ConfirmationTicks    int     `yaml:"confirmation_ticks" json:"confirmation_ticks"`
	DisappearanceTicks   int     `yaml:"disappearance_ticks" json:"disappearance_ticks"`
	SingletonPolicy      string  `yaml:"singleton_policy" json:"singleton_policy"`
}

// Shoe sizes the depletion ledger.
type Shoe struct {
	Sets          int `yaml:"sets" json:"sets"`
	CopiesPerRank int `yaml:"copies_per_rank" json:"copies_per_rank"`
}

// Capture selects the frame source and inference cadence.
type Capture struct {
	// Source is "webcam", "video" or "screen".
	Source              string `yaml:"source" json:"source"`
	WebcamIndex         int    `yaml:"webcam_index" json:"webcam_index"`
	VideoPath           string `yaml:"video_path" json:"video_path"`
	ScreenX             int    `yaml:"screen_x" json:"screen_x"`
	ScreenY             int    `yaml:"screen_y" json:"screen_y"`
	ScreenWidth         int    `yaml:"screen_width" json:"screen_width"`
	ScreenHeight        int    `yaml:"screen_height" json:"screen_height"`
	InferenceIntervalMs int    `yaml:"inference_interval_ms" json:"inference_interval_ms"`
}

// Detector configures the external inference service.
type Detector struct {
	Script        string `yaml:"script" json:"script"`
	Python        string `yaml:"python" json:"python"`
	Weights       string `yaml:"weights" json:"weights"`
	IdleTimeoutMs int    `yaml:"idle_timeout_ms" json:"idle_timeout_ms"`
}

// Evaluator configures the external EV process. An empty Command disables it.
type Evaluator struct {
	Command   string `yaml:"command" json:"command"`
	TimeoutMs int    `yaml:"timeout_ms" json:"timeout_ms"`
}

// Server configures the HTTP surface.
type Server struct {
	Addr string `yaml:"addr" json:"addr"`
}

// Config is the complete runtime configuration.
type Config struct {
	Detection Detection `yaml:"detection" json:"detection"`
	Shoe      Shoe      `yaml:"shoe" json:"shoe"`
	Capture   Capture   `yaml:"capture" json:"capture"`
	Detector  Detector  `yaml:"detector" json:"detector"`
	Evaluator Evaluator `yaml:"evaluator" json:"evaluator"`
	Server    Server    `yaml:"server" json:"server"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Detection: Detection{
			SuppressionThreshold: 0.9,
			GroupingThreshold:    0.1,
			MatchThreshold:       0.9,
			ConfidenceThreshold:  0.9,
			ConfirmationTicks:    5,
			DisappearanceTicks:   5,
			SingletonPolicy:      string(grouping.SingletonsMerged),
		},
		Shoe: Shoe{
			Sets:          1,
			CopiesPerRank: 4,
		},
		Capture: Capture{
			Source:              "webcam",
			InferenceIntervalMs: 250,
		},
		Detector: Detector{
			Weights:       "resources/detection_weights.pt",
			IdleTimeoutMs: 30000,
		},
		Evaluator: Evaluator{
			TimeoutMs: 5000,
		},
		Server: Server{
			Addr: ":8080",
		},
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overlays CARDSIGHT_* variables read through lookup, which is
// usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	floats := map[string]*float64{
		"SUPPRESSION_THRESHOLD": &c.Detection.SuppressionThreshold,
		"GROUPING_THRESHOLD":    &c.Detection.GroupingThreshold,
		"MATCH_THRESHOLD":       &c.Detection.MatchThreshold,
		"CONFIDENCE_THRESHOLD":  &c.Detection.ConfidenceThreshold,
	}
	ints := map[string]*int{
		"CONFIRMATION_TICKS":    &c.Detection.ConfirmationTicks,
		"DISAPPEARANCE_TICKS":   &c.Detection.DisappearanceTicks,
		"SETS":                  &c.Shoe.Sets,
		"WEBCAM_INDEX":          &c.Capture.WebcamIndex,
		"INFERENCE_INTERVAL_MS": &c.Capture.InferenceIntervalMs,
		"EVALUATOR_TIMEOUT_MS":  &c.Evaluator.TimeoutMs,
	}
	strs := map[string]*string{
		"SINGLETON_POLICY":  &c.Detection.SingletonPolicy,
		"SOURCE":            &c.Capture.Source,
		"VIDEO_PATH":        &c.Capture.VideoPath,
		"DETECTOR_SCRIPT":   &c.Detector.Script,
		"DETECTOR_PYTHON":   &c.Detector.Python,
		"DETECTOR_WEIGHTS":  &c.Detector.Weights,
		"EVALUATOR_COMMAND": &c.Evaluator.Command,
		"ADDR":              &c.Server.Addr,
	}

	for name, dst := range floats {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s%s: %v", ErrInvalid, EnvPrefix, name, err)
		}
		*dst = f
	}
	for name, dst := range ints {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s: %v", ErrInvalid, EnvPrefix, name, err)
		}
		*dst = n
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	return nil
}

// Validate checks every section.
func (c Config) Validate() error {
	d := c.Detection
	for name, v := range map[string]float64{
		"suppression_threshold": d.SuppressionThreshold,
		"grouping_threshold":    d.GroupingThreshold,
	} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("%w: %s %v not in (0, 1]", ErrInvalid, name, v)
		}
	}
	if err := c.Tracker().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := grouping.ParseSingletonPolicy(d.SingletonPolicy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if c.Shoe.Sets < 1 || c.Shoe.CopiesPerRank < 1 {
		return fmt.Errorf("%w: shoe needs positive sets and copies per rank", ErrInvalid)
	}

	switch c.Capture.Source {
	case "webcam", "screen":
	case "video":
		if c.Capture.VideoPath == "" {
			return fmt.Errorf("%w: video source needs video_path", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown capture source %q", ErrInvalid, c.Capture.Source)
	}
	if c.Capture.InferenceIntervalMs <= 0 {
		return fmt.Errorf("%w: inference_interval_ms must be positive", ErrInvalid)
	}

	return nil
}

// Tracker returns the tracker thresholds.
func (c Config) Tracker() tracker.Config {
	return tracker.Config{
		MatchThreshold:      c.Detection.MatchThreshold,
		ConfidenceThreshold: c.Detection.ConfidenceThreshold,
		ConfirmationTicks:   c.Detection.ConfirmationTicks,
		DisappearanceTicks:  c.Detection.DisappearanceTicks,
	}
}

// Ledger returns the ledger sizing.
func (c Config) Ledger() ledger.Config {
	return ledger.Config{
		Sets:          c.Shoe.Sets,
		CopiesPerRank: c.Shoe.CopiesPerRank,
	}
}

// Policy returns the parsed singleton policy, falling back to merge.
func (c Config) Policy() grouping.SingletonPolicy {
	p, err := grouping.ParseSingletonPolicy(c.Detection.SingletonPolicy)
	if err != nil {
		return grouping.SingletonsMerged
	}
	return p
}

// InferenceInterval returns the capture loop period.
func (c Config) InferenceInterval() time.Duration {
	return time.Duration(c.Capture.InferenceIntervalMs) * time.Millisecond
}

// DetectorIdleTimeout returns the detector service idle timeout.
func (c Config) DetectorIdleTimeout() time.Duration {
	return time.Duration(c.Detector.IdleTimeoutMs) * time.Millisecond
}

// EvaluatorTimeout returns the evaluator call timeout.
func (c Config) EvaluatorTimeout() time.Duration {
	return time.Duration(c.Evaluator.TimeoutMs) * time.Millisecond
}

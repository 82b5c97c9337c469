package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ErrInvalidConfig is returned when a Config fails validation
var ErrInvalidConfig = errors.New("invalid tracker config")

// Config holds the ReIDTracker tuning parameters
type Config struct {
	// IoUThreshold is the minimum IoU for a geometric match
	IoUThreshold float32 `json:"iou_threshold"`
	// FeatDistanceLow is the ungated appearance match distance, a pair
	// matches when its distance is strictly less
	FeatDistanceLow float32 `json:"feat_distance_low"`
	// FeatDistanceHigh is the center gated appearance match distance, at most
	// 2.0 which is the distance of a pair without comparable embeddings
	FeatDistanceHigh float32 `json:"feat_distance_high"`
	// ScoreThreshold drops detections scoring below it
	ScoreThreshold float32 `json:"score_threshold"`
	// MinHits is the number of consecutive matches before a track is shown
	MinHits int `json:"min_hits"`
	// MaxAge is the number of frames a track may go unmatched before it is
	// evicted
	MaxAge int `json:"max_age"`
	// FeatureCapacity is the size of each track's feature history
	FeatureCapacity int `json:"feature_capacity"`
	// RefreshInterval is the frame period on which matched tracks get their
	// feature history refreshed
	RefreshInterval int `json:"refresh_interval"`
}

// DefaultConfig returns the default tracker tuning
func DefaultConfig() Config {
	return Config{
		IoUThreshold:     0.5,
		FeatDistanceLow:  0.8,
		FeatDistanceHigh: 1.0,
		ScoreThreshold:   0.0,
		MinHits:          3,
		MaxAge:           30,
		FeatureCapacity:  30,
		RefreshInterval:  5,
	}
}

// Validate checks the config values are usable
func (c Config) Validate() error {

	switch {
	case c.IoUThreshold < 0 || c.IoUThreshold > 1:
		return errors.Wrapf(ErrInvalidConfig, "iou_threshold %v not in [0,1]", c.IoUThreshold)
	case c.FeatDistanceLow < 0:
		return errors.Wrapf(ErrInvalidConfig, "feat_distance_low %v is negative", c.FeatDistanceLow)
	case c.FeatDistanceHigh < c.FeatDistanceLow:
		return errors.Wrapf(ErrInvalidConfig, "feat_distance_high %v below feat_distance_low %v",
			c.FeatDistanceHigh, c.FeatDistanceLow)
	case c.FeatDistanceHigh > noFeatureDistance:
		return errors.Wrapf(ErrInvalidConfig, "feat_distance_high %v above %v",
			c.FeatDistanceHigh, noFeatureDistance)
	case c.MinHits < 0:
		return errors.Wrapf(ErrInvalidConfig, "min_hits %d is negative", c.MinHits)
	case c.MaxAge < 0:
		return errors.Wrapf(ErrInvalidConfig, "max_age %d is negative", c.MaxAge)
	case c.FeatureCapacity < 1:
		return errors.Wrapf(ErrInvalidConfig, "feature_capacity %d must be at least 1", c.FeatureCapacity)
	case c.RefreshInterval < 1:
		return errors.Wrapf(ErrInvalidConfig, "refresh_interval %d must be at least 1", c.RefreshInterval)
	}

	return nil
}

// maxConfigSize caps the size of a config file
const maxConfigSize = 1 << 20

// LoadConfig reads a JSON config file.  Fields omitted from the file keep
// their DefaultConfig values.
func LoadConfig(path string) (Config, error) {

	cfg := DefaultConfig()

	cleanPath := filepath.Clean(path)

	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return cfg, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)

	if err != nil {
		return cfg, errors.Wrap(err, "failed to stat config file")
	}

	if info.Size() > maxConfigSize {
		return cfg, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(cleanPath)

	if err != nil {
		return cfg, errors.Wrap(err, "failed to read config file")
	}

	// decoding onto the defaults leaves absent fields untouched
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse config file %s", cleanPath)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

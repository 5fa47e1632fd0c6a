package impl

import (
	"math"

	"pawtrack/config"
	"pawtrack/internal/domain/entity"
)

// SampleValidator is the pure acceptance test for one incoming sample
// against a session's last accepted sample. It keeps no state; the same
// two inputs always produce the same answer.
type SampleValidator struct {
	cfg *config.TrackingConfig
}

// NewSampleValidator builds a validator from the tracking thresholds.
func NewSampleValidator(cfg *config.Config) *SampleValidator {
	return &SampleValidator{cfg: cfg.Tracking}
}

// Validate checks sample against prev (nil when the route is empty).
// maxAccuracy is passed per call so the ingest pipeline can widen the
// tolerance during signal-loss degradation. The returned reason is only
// meaningful when ok is false.
func (v *SampleValidator) Validate(sample entity.LocationSample, prev *entity.LocationSample, maxAccuracy float64) (reason entity.RejectionReason, ok bool) {
	if !coordinatesInRange(sample) {
		return entity.RejectionOutOfRange, false
	}

	if sample.Accuracy > maxAccuracy {
		return entity.RejectionInaccurateFix, false
	}

	if prev != nil {
		// Monotonic timestamps are the safety net against transports
		// that reorder or retry samples.
		if !sample.Timestamp.After(prev.Timestamp) {
			return entity.RejectionStale, false
		}

		elapsed := sample.Timestamp.Sub(prev.Timestamp).Seconds()
		if elapsed > 0 {
			implied := sample.DistanceTo(*prev) / elapsed
			if implied > v.cfg.SanitySpeedMps {
				return entity.RejectionImplausibleSpeed, false
			}
		}
	}

	return "", true
}

func coordinatesInRange(sample entity.LocationSample) bool {
	if isNonFinite(sample.Latitude) || isNonFinite(sample.Longitude) || isNonFinite(sample.Accuracy) {
		return false
	}
	if sample.Accuracy < 0 {
		return false
	}
	if sample.Latitude < -90 || sample.Latitude > 90 {
		return false
	}
	if sample.Longitude < -180 || sample.Longitude > 180 {
		return false
	}
	if sample.Timestamp.IsZero() {
		return false
	}

	return true
}

func isNonFinite(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}

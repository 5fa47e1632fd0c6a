package impl

import (
	"math"
	"testing"
	"time"

	"pawtrack/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_FirstSample(t *testing.T) {
	v := NewSampleValidator(testConfig())
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	reason, ok := v.Validate(sampleAt(0, now), nil, 50)
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestValidate_Rejections(t *testing.T) {
	v := NewSampleValidator(testConfig())
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	prev := sampleAt(0, now)

	tests := []struct {
		name   string
		sample entity.LocationSample
		prev   *entity.LocationSample
		reason entity.RejectionReason
	}{
		{
			name:   "latitude out of range",
			sample: entity.LocationSample{Latitude: 91, Longitude: 0, Accuracy: 5, Timestamp: now},
			reason: entity.RejectionOutOfRange,
		},
		{
			name:   "longitude out of range",
			sample: entity.LocationSample{Latitude: 0, Longitude: -181, Accuracy: 5, Timestamp: now},
			reason: entity.RejectionOutOfRange,
		},
		{
			name:   "non-finite coordinate",
			sample: entity.LocationSample{Latitude: math.NaN(), Longitude: 0, Accuracy: 5, Timestamp: now},
			reason: entity.RejectionOutOfRange,
		},
		{
			name:   "negative accuracy",
			sample: entity.LocationSample{Latitude: 0, Longitude: 0, Accuracy: -1, Timestamp: now},
			reason: entity.RejectionOutOfRange,
		},
		{
			name:   "zero timestamp",
			sample: entity.LocationSample{Latitude: 0, Longitude: 0, Accuracy: 5},
			reason: entity.RejectionOutOfRange,
		},
		{
			name:   "accuracy above ceiling",
			sample: entity.LocationSample{Latitude: 0, Longitude: 0, Accuracy: 80, Timestamp: now},
			reason: entity.RejectionInaccurateFix,
		},
		{
			name:   "timestamp equal to previous",
			sample: sampleAt(0.0001, now),
			prev:   &prev,
			reason: entity.RejectionStale,
		},
		{
			name:   "timestamp before previous",
			sample: sampleAt(0.0001, now.Add(-time.Second)),
			prev:   &prev,
			reason: entity.RejectionStale,
		},
		{
			// ~0.01 deg latitude is roughly 1.1 km; in one second that is
			// far past the 15 m/s sanity ceiling.
			name:   "implausible speed",
			sample: sampleAt(0.01, now.Add(time.Second)),
			prev:   &prev,
			reason: entity.RejectionImplausibleSpeed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, ok := v.Validate(tt.sample, tt.prev, 50)
			require.False(t, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestValidate_WidenedAccuracyDuringDegradation(t *testing.T) {
	v := NewSampleValidator(testConfig())
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	sample := entity.LocationSample{Latitude: 37.7749, Longitude: -122.4194, Accuracy: 80, Timestamp: now}

	_, ok := v.Validate(sample, nil, 50)
	assert.False(t, ok, "80m fix should fail the normal 50m ceiling")

	_, ok = v.Validate(sample, nil, 100)
	assert.True(t, ok, "80m fix should pass the degraded 100m ceiling")
}

func TestValidate_PlausibleMovement(t *testing.T) {
	v := NewSampleValidator(testConfig())
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	prev := sampleAt(0, now)

	// ~11 m in 10 s is an ordinary walking pace.
	next := sampleAt(0.0001, now.Add(10*time.Second))
	reason, ok := v.Validate(next, &prev, 50)
	assert.True(t, ok)
	assert.Empty(t, reason)
}

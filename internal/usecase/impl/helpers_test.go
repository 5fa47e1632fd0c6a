package impl

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"pawtrack/config"
	"pawtrack/internal/domain/entity"
	"pawtrack/internal/infra/metrics"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock is a hand-driven clock shared by a service under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Tracking = &config.TrackingConfig{
		MaxAccuracyMeters:      50,
		DegradedAccuracyMeters: 100,
		SanitySpeedMps:         15,
		WalkingSpeedMps:        3,
		WalkingSpeedStreak:     3,
		ThrottleInterval:       5 * time.Second,
		SignalLossWindow:       time.Minute,
		SignalLossCeiling:      5 * time.Minute,
		StartGraceWindow:       10 * time.Minute,
		MaxRoutePoints:         1000,
		RetentionWindow:        time.Hour,
	}
	cfg.Stream = &config.StreamConfig{
		SubscriberBuffer: 16,
		WriteWait:        10 * time.Second,
		PongWait:         60 * time.Second,
		PingPeriod:       54 * time.Second,
		MaxMessageSize:   4096,
	}

	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(cfg *config.Config, clock *fakeClock) *TrackingService {
	logger := testLogger()
	m := metrics.New()
	svc := NewTrackingService(cfg, logger, NewSampleValidator(cfg), NewBroadcaster(cfg, logger, m), m, nil)
	svc.clock = clock.Now

	return svc
}

// sampleAt builds an accurate fix near the test origin, offset north by
// latOffset degrees.
func sampleAt(latOffset float64, at time.Time) entity.LocationSample {
	return entity.LocationSample{
		Latitude:  37.7749 + latOffset,
		Longitude: -122.4194,
		Accuracy:  10,
		Timestamp: at,
	}
}

package config

import "testing"

func TestCanonicalizeEnvKey_UsesExistingCamelCaseKeys(t *testing.T) {
	existing := map[string]any{
		"tracking": map[string]any{
			"sanitySpeedMps": 15.0,
			"signalLossWindow": "60s",
		},
		"pubsub": map[string]any{
			"topicId": "",
		},
		"secretKey": map[string]any{
			"access": "",
		},
	}

	tests := []struct {
		envKey string
		want   string
	}{
		{envKey: "TRACKING_SANITYSPEEDMPS", want: "tracking.sanitySpeedMps"},
		{envKey: "TRACKING_SIGNALLOSSWINDOW", want: "tracking.signalLossWindow"},
		{envKey: "PUBSUB_TOPICID", want: "pubsub.topicId"},
		{envKey: "SECRETKEY_ACCESS", want: "secretKey.access"},
		{envKey: "NEW_FEATURE_FLAG", want: "new.feature.flag"},
	}

	for _, tt := range tests {
		t.Run(tt.envKey, func(t *testing.T) {
			if got := canonicalizeEnvKey(tt.envKey, existing); got != tt.want {
				t.Fatalf("canonicalizeEnvKey(%q) = %q, want %q", tt.envKey, got, tt.want)
			}
		})
	}
}

func TestTrackingConfigDefaults(t *testing.T) {
	cfg := (*TrackingConfig)(nil).withDefaults()

	if cfg.MaxAccuracyMeters != 50 {
		t.Fatalf("MaxAccuracyMeters = %v, want 50", cfg.MaxAccuracyMeters)
	}
	if cfg.SanitySpeedMps != 15 {
		t.Fatalf("SanitySpeedMps = %v, want 15", cfg.SanitySpeedMps)
	}
	if cfg.WalkingSpeedMps != 3 {
		t.Fatalf("WalkingSpeedMps = %v, want 3", cfg.WalkingSpeedMps)
	}
	if cfg.SignalLossCeiling <= cfg.SignalLossWindow {
		t.Fatal("SignalLossCeiling must exceed SignalLossWindow")
	}
}

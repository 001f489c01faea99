package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/vertotem/Mastodon-Random-Picker/internal/config"
	"github.com/vertotem/Mastodon-Random-Picker/internal/fetch"
)

func defaultTestConfig() *config.Config {
	return &config.Config{
		Fetch: config.FetchConfig{
			Dialect:   "auto",
			BatchSize: config.DefaultBatchSize,
			PageDelay: config.Duration{Duration: config.DefaultPageDelay},
		},
	}
}

func resetFetchFlags(t *testing.T) {
	t.Helper()
	oldCount, oldDate, oldBatch := fetchLimitCount, fetchLimitDate, fetchBatch
	oldReplies, oldReblogs := fetchExcludeReplies, fetchExcludeReblogs
	t.Cleanup(func() {
		fetchLimitCount, fetchLimitDate, fetchBatch = oldCount, oldDate, oldBatch
		fetchExcludeReplies, fetchExcludeReblogs = oldReplies, oldReblogs
	})
	fetchLimitCount, fetchLimitDate, fetchBatch = 0, "", 0
	fetchExcludeReplies, fetchExcludeReblogs = false, false
}

func TestBuildWalkConfigDefaults(t *testing.T) {
	resetFetchFlags(t)

	wc, err := buildWalkConfig(defaultTestConfig())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if wc.Mode != fetch.ModeAll || wc.BatchSize != config.DefaultBatchSize || wc.PageDelay != config.DefaultPageDelay {
		t.Errorf("config = %+v", wc)
	}
}

func TestBuildWalkConfigLimits(t *testing.T) {
	resetFetchFlags(t)

	fetchLimitCount = 100
	wc, err := buildWalkConfig(defaultTestConfig())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if wc.Mode != fetch.ModeCount || wc.LimitCount != 100 {
		t.Errorf("config = %+v", wc)
	}

	fetchLimitCount = 0
	fetchLimitDate = "2023-06-01"
	wc, err = buildWalkConfig(defaultTestConfig())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if wc.Mode != fetch.ModeDate {
		t.Errorf("mode = %q", wc.Mode)
	}
	want := time.Date(2023, 6, 1, 0, 0, 0, 0, time.Local)
	if !wc.LimitDate.Equal(want) {
		t.Errorf("limit date = %v, want %v", wc.LimitDate, want)
	}

	fetchLimitCount = 100
	if _, err := buildWalkConfig(defaultTestConfig()); err == nil {
		t.Error("both limits accepted")
	}
}

func TestBuildWalkConfigBatchOverride(t *testing.T) {
	resetFetchFlags(t)

	fetchBatch = 80
	wc, err := buildWalkConfig(defaultTestConfig())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if wc.BatchSize != 80 {
		t.Errorf("batch = %d", wc.BatchSize)
	}

	fetchBatch = 81
	if _, err := buildWalkConfig(defaultTestConfig()); err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Errorf("err = %v, want out of range", err)
	}
}

func TestParseDayRejectsGarbage(t *testing.T) {
	if _, err := parseDay("yesterday"); err == nil {
		t.Error("garbage date accepted")
	}
}

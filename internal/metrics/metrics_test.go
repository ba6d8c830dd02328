// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	m, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T is not a metric", o)
	}
	var pb io_prometheus_client.Metric
	if err := m.Write(&pb); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return pb.GetHistogram().GetSampleCount()
}

func TestRecordPipelineRun(t *testing.T) {
	tests := []struct {
		outcome  string
		duration time.Duration
	}{
		{"success", 2 * time.Second},
		{"validation", 300 * time.Millisecond},
		{"upstream", 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.outcome, func(t *testing.T) {
			before := testutil.ToFloat64(PipelineRuns.WithLabelValues(tt.outcome))
			beforeHist := histogramCount(t, PipelineDuration.WithLabelValues(tt.outcome))

			RecordPipelineRun(tt.outcome, tt.duration)

			if got := testutil.ToFloat64(PipelineRuns.WithLabelValues(tt.outcome)); got != before+1 {
				t.Errorf("runs = %v, want %v", got, before+1)
			}
			if got := histogramCount(t, PipelineDuration.WithLabelValues(tt.outcome)); got != beforeHist+1 {
				t.Errorf("histogram count = %d, want %d", got, beforeHist+1)
			}
		})
	}
}

func TestRecordBucket(t *testing.T) {
	before := testutil.ToFloat64(StrategyFailures.WithLabelValues("content_based"))

	RecordBucket("content_based", 0, true)
	RecordBucket("content_based", 10, false)

	if got := testutil.ToFloat64(StrategyFailures.WithLabelValues("content_based")); got != before+1 {
		t.Errorf("strategy failures = %v, want %v", got, before+1)
	}
}

func TestRecordUpstreamRequest(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		err       error
		wantLabel string
	}{
		{"transport failure", 0, errors.New("dial tcp: refused"), "transport"},
		{"server error", 503, errors.New("unavailable"), "503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := UpstreamRequestErrors.WithLabelValues("tmdb", "get_movie", tt.wantLabel)
			before := testutil.ToFloat64(c)

			RecordUpstreamRequest("tmdb", "get_movie", tt.status, time.Millisecond, tt.err)

			if got := testutil.ToFloat64(c); got != before+1 {
				t.Errorf("errors = %v, want %v", got, before+1)
			}
		})
	}

	t.Run("success does not count an error", func(t *testing.T) {
		c := UpstreamRequestErrors.WithLabelValues("tmdb", "discover", "transport")
		before := testutil.ToFloat64(c)
		RecordUpstreamRequest("tmdb", "discover", 200, time.Millisecond, nil)
		if got := testutil.ToFloat64(c); got != before {
			t.Errorf("errors changed on success: %v -> %v", before, got)
		}
	})
}

func TestRecordDBQuery(t *testing.T) {
	before := testutil.ToFloat64(DBQueryErrors.WithLabelValues("UPSERT", "recommendation_cache"))

	RecordDBQuery("UPSERT", "recommendation_cache", time.Millisecond, nil)
	RecordDBQuery("UPSERT", "recommendation_cache", time.Millisecond, errors.New("constraint"))

	if got := testutil.ToFloat64(DBQueryErrors.WithLabelValues("UPSERT", "recommendation_cache")); got != before+1 {
		t.Errorf("db errors = %v, want %v", got, before+1)
	}
}

func TestRecordPersistenceWrite(t *testing.T) {
	ok := PersistenceWrites.WithLabelValues("badger", "success")
	fail := PersistenceWrites.WithLabelValues("badger", "failure")
	okBefore, failBefore := testutil.ToFloat64(ok), testutil.ToFloat64(fail)

	RecordPersistenceWrite("badger", nil)
	RecordPersistenceWrite("badger", errors.New("disk full"))

	if testutil.ToFloat64(ok) != okBefore+1 || testutil.ToFloat64(fail) != failBefore+1 {
		t.Error("expected one success and one failure")
	}
}

func TestRecordBatch(t *testing.T) {
	succeededBefore := testutil.ToFloat64(BatchUsers.WithLabelValues("succeeded"))
	failedBefore := testutil.ToFloat64(BatchUsers.WithLabelValues("failed"))

	RecordBatch("cli", 7, 2, time.Minute)

	if got := testutil.ToFloat64(BatchUsers.WithLabelValues("succeeded")); got != succeededBefore+7 {
		t.Errorf("succeeded = %v, want %v", got, succeededBefore+7)
	}
	if got := testutil.ToFloat64(BatchUsers.WithLabelValues("failed")); got != failedBefore+2 {
		t.Errorf("failed = %v, want %v", got, failedBefore+2)
	}
	if testutil.ToFloat64(BatchLastSuccess) == 0 {
		t.Error("last success timestamp should be set")
	}
}

func TestTrackActiveRequest_Concurrent(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			TrackActiveRequest(true)
			RecordAPIRequest("GET", "/health", "200", time.Millisecond)
			TrackActiveRequest(false)
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("active requests = %v, want %v", got, before)
	}
}

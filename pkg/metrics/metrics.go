// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/united-manufacturing-hub/treesync/pkg/logger"
)

const (
	// Component labels.
	ComponentSavePipeline = "save_pipeline"
	ComponentLoadPipeline = "load_pipeline"
	ComponentDiffEngine   = "diff_engine"
	ComponentLayerCache   = "layer_cache"
	ComponentStore        = "store"

	// Pipeline labels.
	PipelineSave = "save"
	PipelineLoad = "load"
)

var (
	// Namespace and subsystem for all metrics.
	namespace = "treesync"
	subsystem = "engine"

	// Error counters.
	errorCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "errors_total",
			Help:      "Total number of errors encountered by component",
		},
		[]string{"component", "spec"},
	)

	// Pipeline timing.
	syncTime = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sync_duration_milliseconds",
			Help:      "Time taken for a full sync pass (in milliseconds)",
			Objectives: map[float64]float64{
				0.5:  0.01, // 50th percentile with 1% error
				0.9:  0.01, // 90th percentile with 1% error
				0.95: 0.01, // 95th percentile with 1% error
				0.99: 0.01, // 99th percentile with 1% error
			},
		},
		[]string{"pipeline", "spec"},
	)

	layerTime = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "layer_duration_milliseconds",
			Help:      "Time taken to sync a single layer (in milliseconds)",
			Objectives: map[float64]float64{
				0.5:  0.01,
				0.9:  0.01,
				0.99: 0.01,
			},
		},
		[]string{"pipeline", "spec", "layer"},
	)

	// Diff outcome counters.
	diffOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "diff_ops_total",
			Help:      "Total number of diffed document operations by type",
		},
		[]string{"spec", "layer", "operation"},
	)

	// Store operation metrics.
	storeOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "store_ops_total",
			Help:      "Total number of store operations by type and outcome",
		},
		[]string{"operation", "outcome"},
	)

	storeOpsDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "store_ops_duration_seconds",
			Help:      "Duration of store operations in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"operation"},
	)
)

// SetupMetricsEndpoint starts an HTTP server to expose metrics
// This should be called once at application startup.
func SetupMetricsEndpoint(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.For("metrics").Errorf("metrics endpoint failed: %v", err)
		}
	}()

	return server
}

// IncErrorCount increments the error counter for a component.
func IncErrorCount(component, spec string) {
	errorCounter.WithLabelValues(component, spec).Inc()
}

// ObserveSyncTime records the time taken for a full sync pass.
func ObserveSyncTime(pipeline, spec string, duration time.Duration) {
	syncTime.WithLabelValues(pipeline, spec).Observe(float64(duration.Milliseconds()))
}

// ObserveLayerTime records the time taken to sync one layer.
func ObserveLayerTime(pipeline, spec, layer string, duration time.Duration) {
	layerTime.WithLabelValues(pipeline, spec, layer).Observe(float64(duration.Milliseconds()))
}

// AddDiffOps increases the diff operation counter for one layer by count.
func AddDiffOps(spec, layer, operation string, count int) {
	if count <= 0 {
		return
	}

	diffOpsTotal.WithLabelValues(spec, layer, operation).Add(float64(count))
}

// RecordStoreOp records a store operation metric.
func RecordStoreOp(operation string, err error, duration time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}

	storeOpsTotal.WithLabelValues(operation, outcome).Inc()
	storeOpsDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

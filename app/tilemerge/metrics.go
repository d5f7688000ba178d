// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"net/http"
	"sync"

	"github.com/felixge/fgprof"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/q191201771/tilemerge/pkg/tilemerge"
)

// Metrics 合并会话的统计。合并在主协程中进行，http协程只读取这里的快照
type Metrics struct {
	registry *prometheus.Registry

	accessUnits       prometheus.Counter
	slicesRewritten   prometheus.Counter
	misalignedHeaders prometheus.Counter
	droppedNalus      prometheus.Counter
	rewriteErrors     prometheus.Counter
	configPublishes   prometheus.Counter
	sources           prometheus.Gauge
	canvasWidth       prometheus.Gauge
	canvasHeight      prometheus.Gauge

	mu     sync.Mutex
	last   tilemerge.Stat
	layout string
}

func NewMetrics() *Metrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	}
	m := &Metrics{
		registry:          prometheus.NewRegistry(),
		accessUnits:       counter("tilemerge_access_units_total", "Total number of merged access units"),
		slicesRewritten:   counter("tilemerge_slices_rewritten_total", "Total number of rewritten slice segments"),
		misalignedHeaders: counter("tilemerge_misaligned_headers_total", "Total number of slices with bad byte_alignment()"),
		droppedNalus:      counter("tilemerge_dropped_nalus_total", "Total number of non-slice nal units not forwarded"),
		rewriteErrors:     counter("tilemerge_rewrite_errors_total", "Total number of nal units dropped on parse or rewrite error"),
		configPublishes:   counter("tilemerge_config_publishes_total", "Total number of output decoder configuration changes"),
		sources:           gauge("tilemerge_sources", "Number of tile sources"),
		canvasWidth:       gauge("tilemerge_canvas_width", "Output picture width in luma samples"),
		canvasHeight:      gauge("tilemerge_canvas_height", "Output picture height in luma samples"),
	}
	m.registry.MustRegister(
		m.accessUnits,
		m.slicesRewritten,
		m.misalignedHeaders,
		m.droppedNalus,
		m.rewriteErrors,
		m.configPublishes,
		m.sources,
		m.canvasWidth,
		m.canvasHeight,
	)
	return m
}

// Update 计数器按与上一次快照的差值增加
func (m *Metrics) Update(stat tilemerge.Stat) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accessUnits.Add(float64(stat.AccessUnits - m.last.AccessUnits))
	m.slicesRewritten.Add(float64(stat.SlicesRewritten - m.last.SlicesRewritten))
	m.misalignedHeaders.Add(float64(stat.MisalignedHeaders - m.last.MisalignedHeaders))
	m.droppedNalus.Add(float64(stat.DroppedNalus - m.last.DroppedNalus))
	m.rewriteErrors.Add(float64(stat.RewriteErrors - m.last.RewriteErrors))
	m.configPublishes.Add(float64(stat.ConfigPublishes - m.last.ConfigPublishes))
	m.sources.Set(float64(stat.NumSources))
	m.canvasWidth.Set(float64(stat.CanvasWidth))
	m.canvasHeight.Set(float64(stat.CanvasHeight))
	m.last = stat
}

func (m *Metrics) SetLayout(dump string) {
	m.mu.Lock()
	m.layout = dump
	m.mu.Unlock()
}

func (m *Metrics) Layout() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.layout
}

// NewRouter /metrics，/debug/tiles，/debug/fgprof，以及/debug/pprof
func NewRouter(m *Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	r.Get("/debug/tiles", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(m.Layout()))
	})
	r.Method(http.MethodGet, "/debug/fgprof", fgprof.Handler())
	r.Mount("/debug", middleware.Profiler())
	return r
}

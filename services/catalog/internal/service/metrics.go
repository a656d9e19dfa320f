package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_queries_total",
			Help: "Catalog listing queries by evaluation strategy",
		},
		[]string{"strategy"},
	)

	locationResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_location_resolutions_total",
			Help: "Listing location resolutions by outcome",
		},
		[]string{"outcome"},
	)

	fullScanCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_full_scan_candidates",
			Help:    "Number of candidates fetched by full-scan queries",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000},
		},
	)
)

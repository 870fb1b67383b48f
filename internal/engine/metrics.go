package engine

import "github.com/VictoriaMetrics/metrics"

var (
	compilesTotal      = metrics.NewCounter(`hilite_compiles_total`)
	cacheHitsTotal     = metrics.NewCounter(`hilite_compile_cache_requests_total{result="hit"}`)
	cacheMissesTotal   = metrics.NewCounter(`hilite_compile_cache_requests_total{result="miss"}`)
	droppedChunksTotal = metrics.NewCounter(`hilite_dropped_chunks_total`)
	scansTotal         = metrics.NewCounter(`hilite_scans_total`)
	matchesTotal       = metrics.NewCounter(`hilite_matches_total`)
)

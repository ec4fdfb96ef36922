package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	mappingRuns        atomic.Int64
	mappingSuggestions atomic.Int64
	mappingFallbacks   atomic.Int64
	mappingEmpty       atomic.Int64
	cacheHits          atomic.Int64
	cacheMisses        atomic.Int64
	auditFailures      atomic.Int64
	eventsConsumed     atomic.Int64
	eventsPublished    atomic.Int64
	eventsDeadLettered atomic.Int64
	vocabularySize     atomic.Int64
)

func ObserveMapping(suggestions int, fallback bool) {
	mappingRuns.Add(1)
	mappingSuggestions.Add(int64(suggestions))
	switch {
	case fallback:
		mappingFallbacks.Add(1)
	case suggestions == 0:
		mappingEmpty.Add(1)
	}
}

func ObserveCache(hit bool) {
	if hit {
		cacheHits.Add(1)
		return
	}
	cacheMisses.Add(1)
}

func ObserveAuditFailure() { auditFailures.Add(1) }

func ObserveEventConsumed() { eventsConsumed.Add(1) }

func ObserveEventPublished() { eventsPublished.Add(1) }

func ObserveEventDeadLettered() { eventsDeadLettered.Add(1) }

func SetVocabularySize(n int) { vocabularySize.Store(int64(n)) }

type metric struct {
	name  string
	kind  string
	help  string
	value *atomic.Int64
}

var exposition = []metric{
	{"icd_mapper_runs_total", "counter", "Number of mapping runs served.", &mappingRuns},
	{"icd_mapper_suggestions_total", "counter", "Number of code suggestions returned.", &mappingSuggestions},
	{"icd_mapper_fallback_total", "counter", "Number of runs that returned the fallback suggestion.", &mappingFallbacks},
	{"icd_mapper_empty_total", "counter", "Number of runs with no mappable concepts.", &mappingEmpty},
	{"icd_mapper_cache_hits_total", "counter", "Number of runs answered from the result cache.", &cacheHits},
	{"icd_mapper_cache_misses_total", "counter", "Number of runs not found in the result cache.", &cacheMisses},
	{"icd_mapper_audit_failures_total", "counter", "Number of mapping runs that could not be audited.", &auditFailures},
	{"icd_mapper_events_consumed_total", "counter", "Number of concept events consumed.", &eventsConsumed},
	{"icd_mapper_events_published_total", "counter", "Number of suggestion events published.", &eventsPublished},
	{"icd_mapper_events_dead_lettered_total", "counter", "Number of suggestion events routed to the dead letter topic.", &eventsDeadLettered},
	{"icd_mapper_vocabulary_codes", "gauge", "Number of codes in the loaded reference vocabulary.", &vocabularySize},
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	for _, m := range exposition {
		fmt.Fprintf(w, "# HELP %s %s\n", m.name, m.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", m.name, m.kind)
		fmt.Fprintf(w, "%s %d\n", m.name, m.value.Load())
	}
}

func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WritePrometheus(w)
	}
}

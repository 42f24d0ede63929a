// Package scraper extracts running events from upstream listing sites.
//
// Each upstream site gets one adapter implementing the Source interface.
// Adapters fail soft at the item level: a malformed listing is logged and
// skipped, while connectivity failures surface as errors so the
// orchestrator can retry. Every adapter deduplicates by URL within a single
// Fetch and never emits an event without one.
package scraper

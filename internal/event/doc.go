// Package event defines the canonical event records exchanged between the
// scrapers, the reconciler, and the event store.
//
// A RawEvent is what an adapter emits after normalization: a running event
// with a canonical date string (or the "Date TBD" sentinel), a non-empty
// category list, and a globally unique URL. A StoredEvent is the persisted
// form owned by the store, carrying a generated identifier and bookkeeping
// timestamps.
package event

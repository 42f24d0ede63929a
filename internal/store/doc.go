// Package store defines the event store contract the pipeline reconciles
// against, plus a JSON snapshot-file implementation.
//
// The core only ever takes a read-only URL/title projection once per run
// and hands back one bulk upsert, so any relational backend can stand in
// behind the Store interface. The FileStore keeps everything in a single
// events.json under the data directory and replaces it atomically on
// upsert.
package store

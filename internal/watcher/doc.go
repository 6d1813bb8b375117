// Package watcher observes an indexed project root and feeds debounced
// per-file change events to the indexing coordinator.
//
// Bursts of file-system events are collapsed in an in-memory map keyed
// by absolute path, the latest event kind overwriting earlier ones. An
// entry flushes once no new events have arrived for the debounce
// window (default 500 ms) or it has been held for the maximum hold
// time (default 5 s), whichever comes first.
package watcher

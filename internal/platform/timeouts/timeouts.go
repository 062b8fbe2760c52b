// Package timeouts defines shared timeout constants used across the order
// core. Centralizing these values prevents drift between callers and makes
// the durations discoverable.
package timeouts

import "time"

// StoreWrite caps a single append transaction against the event journal.
// A caller whose append exceeds this must treat the outcome as unknown and
// re-read the stream before retrying.
const StoreWrite = 5 * time.Second

// StoreRead caps a single journal read (stream page, type scan, snapshot).
const StoreRead = 5 * time.Second

// Publish caps handing a batch of committed events to the dispatcher.
const Publish = 10 * time.Second

// Shutdown limits how long the daemon waits for in-flight work during
// graceful shutdown.
const Shutdown = 5 * time.Second

// Package projection rebuilds order read state from the event journal,
// accelerated by snapshots and a Redis view cache. The journal remains the
// source of authority; snapshots and cached views are disposable.
package projection

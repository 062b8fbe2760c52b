// Package app composes the command engine, projection, and event publishing
// into the service surface exposed to transports.
package app

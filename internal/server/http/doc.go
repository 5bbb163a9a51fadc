// Package httpserver exposes the REST surface: event ingestion, the
// undelivered inbox, point lookups, delivery acknowledgment, and a
// liveness probe. All event routes require a bearer API key.
package httpserver

// Package eventsvc orchestrates event ingestion: validation,
// deduplication, rate limiting inputs, persistence, inbox pagination,
// and delivery acknowledgment.
package eventsvc

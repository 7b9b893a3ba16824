/*
Package session implements session management and persistence orchestration.

It provides high-level abstractions for handling concurrent access to session
records across multiple replicas, integrating per-session locking (local and
distributed) with long-term storage adapters. Work on one session is always
serialized: overlapping calls are queued, never interleaved.
*/
package session

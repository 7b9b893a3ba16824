/*
Package domain contains the core domain models of the customer-service core.

It defines the client record, score bands, credit decisions, ledger entries and
the per-conversation session record. This package is kept pure and free of
external dependencies like I/O or persistence, following Hexagonal Architecture
principles.

# Key Entities

  - Client: A bank client keyed by its normalized CPF.
  - ScoreBand: Maps an inclusive score range to a maximum credit limit.
  - Decision / LedgerEntry: The outcome of a limit-change request and its audit record.
  - Session: The ephemeral record of one conversation (authentication + menu flow).
*/
package domain

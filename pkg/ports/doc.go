/*
Package ports defines the driven ports (interfaces) of the customer-service core.

These interfaces decouple the authentication machine, the credit engine and the
orchestrator from concrete storage and transport implementations.

# Key Interfaces

  - IdentityStore: Client lookup and single-field updates (score, limit).
  - ScoreBandTable: Score to maximum-limit rules.
  - DecisionLedger: Append-only audit trail of credit decisions.
  - SessionStore: Persists per-conversation session records.
  - DistributedLocker: Provides distributed locking across replicas.
  - QuoteProvider: Currency conversion rates.
  - ReplyRenderer: Turns a structured reply into prose.
*/
package ports

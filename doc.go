/*
Package guiche is the core of a bank customer-service assistant: it
authenticates clients by CPF and birth date, answers limit queries, decides
credit-limit increases against a score-band table and records every decision
in an append-only ledger.

# Concept

A conversation is a session. Each user message goes through
orchestrator.Orchestrator.HandleInput, which runs the authentication state
machine (three failed attempts block the session) and, once authenticated,
the service menu: limit query, limit increase, credit interview and currency
quote. Replies are structured (domain.Reply with a stable event tag) and
rendered into Portuguese prose by a ports.ReplyRenderer.

Storage sits behind ports: sessions (memory, file, Redis), clients and score
bands (memory, SQLite) and the decision ledger (memory, SQLite, JSONL file,
Redis). Calls on one session are serialized by session.Manager; updates to one
client are serialized by a keylock.Locker, optionally backed by a Redis lock
so several replicas can share the same stores.

# Usage

	cfg, err := config.Load("guiche.yaml")
	if err != nil {
		log.Fatal(err)
	}

	app, err := guiche.New(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	reply, err := app.Orchestrator.HandleInput(ctx, "session-1", "521.892.938-71")

The guiche command serves the same App over HTTP, MCP or an interactive
terminal chat.
*/
package guiche

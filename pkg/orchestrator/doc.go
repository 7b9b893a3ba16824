/*
Package orchestrator binds an authentication dialogue to the credit engine and
exposes the single "submit next input" operation used by every transport.

Before authentication each input is handed to the auth.Machine. Afterwards the
input is read as a menu choice (limit query, limit increase, credit interview,
currency quote) or as the answer to the sub-dialogue in progress. Every call
runs under the session lock, so inputs on one session are processed one at a
time and in arrival order.

Replies are structured (domain.Reply); turning them into prose is the job of a
ports.ReplyRenderer.
*/
package orchestrator

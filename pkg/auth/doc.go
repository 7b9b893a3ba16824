/*
Package auth implements the authentication dialogue of a session.

The Machine is a pure transition function over domain.AuthState: it receives
the current state and one raw input, and returns the next state together with
a tagged Result describing what happened. Callers persist the returned state.

	ask_identifier --found--> ask_birth_date --match--> authenticated
	      |                        |
	      +---- max failures ------+------------------> blocked

Format errors (a CPF without 11 digits, an unparseable date) only re-prompt.
Authentication failures (unknown CPF, wrong birth date) are counted and lock
the session once MaxAttempts is reached. Identity store errors are reported as
ResultStoreError and leave the state untouched.
*/
package auth

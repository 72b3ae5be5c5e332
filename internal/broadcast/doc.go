// Package broadcast provides best-effort parallel fan-out to a set of peers.
// Every target gets its own timeout, and the caller learns which targets
// were reached so failed ones can be handed to a retry.
package broadcast

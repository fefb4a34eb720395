// Package secrets detects and redacts credentials in upstream payloads before
// they are returned to the caller.
//
// Coolify responses routinely embed deployment secrets: database URLs with
// passwords, private keys, webhook secrets and environment values. Every
// successful tool result passes through a Scrubber. Findings record the rule
// and position but never the matched value.
package secrets

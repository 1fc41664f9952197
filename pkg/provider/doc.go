// Package provider defines the model-client abstraction the agent loop
// talks to, the static per-provider capability table, and the two tool
// invocation protocols: native structured function calling and simulated
// calling driven by parsing a JSON block out of free text.
package provider

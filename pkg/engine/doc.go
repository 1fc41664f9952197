// Package engine runs the multi-turn agent loop: it sends the
// conversation and tool catalog to the model, parses requested tool
// calls natively or out of free text depending on the provider's
// capabilities, executes them through the tool executor, feeds results
// back, and repeats until the model answers without tool calls or the
// iteration bound is reached.
package engine

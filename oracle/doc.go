// Package oracle provides the LLM-backed decision steps of the
// consolidation path: insight extraction and merge decisions.
//
// Anthropic is the production implementation on the Claude API, with
// strict JSON contracts, bounded timeouts, and exponential backoff.
// Static is a deterministic in-process implementation for tests and
// offline runs. Both satisfy insight.Extractor and merge.Oracle, so
// the orchestrator never knows which backend it is driving.
package oracle

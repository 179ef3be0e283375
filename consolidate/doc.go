// Package consolidate drives the end-of-session workflow that merges
// extracted insights into the per-project knowledge base.
//
// State machine: IDLE → EXTRACTING → (no insights: SKIPPED) |
// RESOLVING → PERSISTING → COMPLETED, with FAILED reachable from any
// state. Failure reports partial progress: categories already committed
// stay committed, there is no rollback. Categories are independent, and
// re-running an unchanged session produces only no-op merges.
package consolidate

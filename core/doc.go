// Package core holds the leaf types shared across the SDK: conversation
// messages, project context, and embedded text artifacts.
//
// core has no dependencies on the other packages; everything else
// (embedding, rank, assemble, memory, consolidate) depends on core.
package core

// Package triage governs the lifecycle of work items: the durable records
// tracking whether a human has applied judgment to each source item. It
// defines the domain model, the Store persistence interface, and the Service
// that enforces the state machine — including the clearable invariant that
// refuses to trust an item that was never linked, extracted from, or
// explicitly ignored.
package triage

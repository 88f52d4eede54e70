// Package schedule holds the band schedule grid model and the reconciliation
// of availability statements against it.
//
// Reconcile is a pure function: it turns a grid snapshot, a member name, a list
// of dates and a status into the cell updates to write plus the dates that have
// no row in the sheet. It performs no I/O, so the same inputs always produce
// the same plan.
//
// First match wins on both axes. A member name that appears twice in the header
// resolves to the leftmost column, and a date that appears twice in the date
// column resolves to the topmost row.
package schedule

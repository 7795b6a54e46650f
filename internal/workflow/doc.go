// Package workflow implements the pending entry state machine.
//
// Intake creates an entry at pending and runs the metadata step, landing it
// at awaiting_confirmation or failed. Librarians edit entries that are not
// yet approved and confirm entries from awaiting_confirmation or failed,
// producing approved (with a finalized output document) or rejected. The
// insertion package takes approved entries to completed.
//
// Every state change and its audit entry commit together. Operations on an
// entry outside its permitted statuses fail with a *catalogue.StateError.
package workflow

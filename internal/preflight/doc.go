// Package preflight provides readiness checks for the filesystem paths,
// database and external services accession depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and logs every failed check as a
//     warning. Failures never stop the daemon.
//   - The CLI "accession doctor" command renders the results as a table.
//
// Each service check is gated by its config toggle. Disabled features are
// skipped.
package preflight

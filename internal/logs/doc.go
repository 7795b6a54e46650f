// Package logs reads the JSON log files written by the daemon and the CLI.
//
// Last returns the final lines of a file with bounded memory, Follow polls
// for appended lines until its context ends, and ParseRecord decodes a line
// so callers can filter by level or entry and render it for a terminal.
package logs

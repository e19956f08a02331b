// Package serverrun starts and supervises all server components for the
// `fip server start` command.
package serverrun

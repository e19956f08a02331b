// Package runtime wires configuration, storage, transports, and services
// into a runnable single-node instance.
package runtime

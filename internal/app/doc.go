// Package app wires application dependencies for the CLI.
//
// Config is read from YAML and validated. NewWire builds the stores, the
// relay client and the login service from it. Login then derives the
// per-participant runtime: the session, the shared-key resolver and the
// sync engine.
package app

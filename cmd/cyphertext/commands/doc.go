// Package commands defines the cyphertext CLI and wires dependencies for subcommands.
//
// Commands
//
//   - keygen         Create the local identity, encrypted with -p
//   - fingerprint    Print the identity fingerprint
//   - publish        Log in and publish the public key to the relay
//   - send           Send a message or a '#' command to a peer or the global channel
//   - open           Sync a conversation and print it
//   - listen         Stay online, print live messages and resync periodically
//   - conversations  List conversations with unread counts
//
// # Implementation
//
// The root command loads the YAML config, applies flag overrides, and builds
// an app.Wire before any subcommand runs. Commands that act as a participant
// log in through it; without -p they run as a guest with a throwaway key.
package commands

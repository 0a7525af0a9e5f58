// Package cli provides the interactive messaging client.
//
// It wires configuration, the local cache, the credential vault, the remote
// gateway, the synchronization store and the live-update bridge into an
// interactive REPL. Typical flow: restore the previous session (or prompt
// for credentials), start the live connection in the background, and
// execute user commands against the store.
//
// Key commands:
//   - login / logout
//   - channels, direct, users — list collections
//   - recent, starred — flat message views
//   - open <id>, send <text> — channel interaction
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli

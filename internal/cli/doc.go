// Package cli is the interactive LabKeeper console.
//
// NewApp wires configuration, the encrypted order table, the credential
// vault, the study catalog and the audit trail; App.Run then prompts for a
// login and starts a read–eval–print loop. Every command checks the
// session token and the caller's role before touching a service:
//
//   - reception (recepcion, admin): neworder
//   - lab (lab, medico, admin): capture, sign
//   - any logged-in user: folios, show, report, search, export, studies,
//     history, passwd
//   - admin: users, adduser, temppass, deluser
//
// See runREPL for the command loop.
package cli

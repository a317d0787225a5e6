// Package audit keeps an append-only trail of security relevant actions
// (logins, order creation, result capture, credential changes) in a local
// SQLite database. Events never carry patient plaintext: only folios,
// usernames, actions and statuses.
package audit

import "time"

// Action names recorded in the trail.
const (
	ActionLogin          = "login"
	ActionLoginFailed    = "login_failed"
	ActionOrderCreated   = "order_created"
	ActionResultsCapture = "results_captured"
	ActionOrdersExported = "orders_exported"
	ActionUserUpserted   = "user_upserted"
	ActionPasswordSet    = "password_set"
	ActionPasswordReset  = "password_reset"
	ActionUserDeleted    = "user_deleted"
)

type Event struct {
	ID      string
	At      time.Time
	Actor   string
	Action  string
	Subject string
	Detail  string
}

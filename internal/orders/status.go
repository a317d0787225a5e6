package orders

import (
	"fmt"

	"github.com/dmitrijs2005/labkeeper/internal/common"
)

// Status is the lifecycle state of an order, persisted in Spanish for
// compatibility with existing tables.
type Status string

const (
	StatusPending  Status = "pendiente"
	StatusCaptured Status = "capturado"
	StatusSigned   Status = "firmado"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCaptured, StatusSigned:
		return true
	}
	return false
}

// Advance returns the status an order moves to when results are captured.
//
// The machine is permissive: the target depends only on release, so a
// pending order may be signed in one step and a signed order may be
// captured again. With strict set, signed orders are final and any further
// capture fails with common.ErrInvalidTransition.
func (s Status) Advance(release, strict bool) (Status, error) {
	if strict && s == StatusSigned {
		return s, fmt.Errorf("%w: order is already %s", common.ErrInvalidTransition, s)
	}
	if release {
		return StatusSigned, nil
	}
	return StatusCaptured, nil
}

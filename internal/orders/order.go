// Package orders is the LabKeeper order store: lab orders persisted as rows
// of a flat CSV table whose sensitive columns are individually encrypted,
// plus the result-capture lifecycle and the decrypted, searchable view.
package orders

import (
	"strings"
	"time"
)

// Persisted column names, in file order.
const (
	ColFolio        = "Folio"
	ColRegisteredAt = "Fecha_Registro"
	ColScheduledAt  = "Fecha_Programada"
	ColCost         = "Costo_MXN"
	ColNameEnc      = "Nombre_enc"
	ColAge          = "Edad"
	ColGender       = "Genero"
	ColPhoneEnc     = "Telefono_enc"
	ColAddressEnc   = "Direccion_enc"
	ColEmailsEnc    = "Emails_enc"
	ColStudyType    = "Tipo_Estudio"
	ColNotesEnc     = "Observaciones_enc"
	ColResultsEnc   = "Resultados_enc"
	ColStatus       = "Estado"
)

// Columns is the header of the order table.
var Columns = []string{
	ColFolio, ColRegisteredAt, ColScheduledAt, ColCost,
	ColNameEnc, ColAge, ColGender, ColPhoneEnc, ColAddressEnc, ColEmailsEnc,
	ColStudyType, ColNotesEnc, ColResultsEnc,
	ColStatus,
}

const (
	// ListSeparator joins multi-valued fields (study types, emails).
	ListSeparator = "; "

	FolioLayout        = "20060102150405"
	RegisteredAtLayout = "2006-01-02T15:04:05"
	DateLayout         = "2006-01-02"
)

// Order is one persisted row. The *Enc fields hold cipher tokens (or ""
// for rows written before encryption). StudyType stays plaintext.
type Order struct {
	Folio        string
	RegisteredAt string
	ScheduledAt  string
	Cost         float64
	NameEnc      string
	Age          *int
	Gender       string
	PhoneEnc     string
	AddressEnc   string
	EmailsEnc    string
	StudyType    string
	NotesEnc     string
	ResultsEnc   string
	Status       Status
}

// NewOrder is the input of CreateOrder. Folio is used as-is when set,
// otherwise one is derived from the clock. AutoCost replaces Cost with the
// catalog price of StudyTypes. A zero ScheduledAt means today.
type NewOrder struct {
	Folio       string
	ScheduledAt time.Time
	AutoCost    bool
	PatientName string
	Gender      string
	Phone       string
	Address     string
	StudyTypes  []string
	Notes       string

	Cost   float64  `validate:"gte=0"`
	Age    *int     `validate:"omitempty,gte=0,lte=150"`
	Emails []string `validate:"dive,email"`
}

// Summary is a single order with its sensitive fields decrypted.
type Summary struct {
	Folio        string
	RegisteredAt string
	ScheduledAt  string
	Status       Status
	StudyType    string
	Name         string
	Phone        string
	Address      string
	Emails       string
	Notes        string
	Results      string
}

// JoinList joins non-empty, trimmed values with ListSeparator.
func JoinList(values []string) string {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	return strings.Join(kept, ListSeparator)
}

// SplitList is the inverse of JoinList.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package orders

import (
	"encoding/csv"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ViewColumns is the header of the decrypted view.
var ViewColumns = []string{
	"Folio", "Fecha_Registro", "Fecha_Programada", "Costo_MXN",
	"Nombre", "Edad", "Genero", "Telefono", "Direccion", "Emails", "Tipo_Estudio",
	"Observaciones", "Resultados", "Estado",
}

// ViewRow is an order with every encrypted column replaced by plaintext.
type ViewRow struct {
	Folio        string
	RegisteredAt string
	ScheduledAt  string
	Cost         float64
	Name         string
	Age          *int
	Gender       string
	Phone        string
	Address      string
	Emails       string
	StudyType    string
	Notes        string
	Results      string
	Status       Status
}

// Values returns the row's string form in ViewColumns order.
func (r ViewRow) Values() []string {
	return []string{
		r.Folio,
		r.RegisteredAt,
		r.ScheduledAt,
		formatCost(r.Cost),
		r.Name,
		formatAge(r.Age),
		r.Gender,
		r.Phone,
		r.Address,
		r.Emails,
		r.StudyType,
		r.Notes,
		r.Results,
		string(r.Status),
	}
}

// Opener decrypts a single token, reporting failures.
type Opener interface {
	Open(token string) (string, error)
}

// DecryptFailure records an encrypted field that did not open. The view
// still shows it as "".
type DecryptFailure struct {
	Folio  string
	Column string
	Err    error
}

// DecryptedView projects orders into plaintext rows. Fields that fail to
// decrypt become "" and are listed in the returned failures.
func DecryptedView(orders []Order, opener Opener) ([]ViewRow, []DecryptFailure) {
	var failures []DecryptFailure

	open := func(folio, column, token string) string {
		s, err := opener.Open(token)
		if err != nil {
			failures = append(failures, DecryptFailure{Folio: folio, Column: column, Err: err})
			return ""
		}
		return s
	}

	view := make([]ViewRow, 0, len(orders))
	for _, o := range orders {
		view = append(view, ViewRow{
			Folio:        o.Folio,
			RegisteredAt: o.RegisteredAt,
			ScheduledAt:  o.ScheduledAt,
			Cost:         o.Cost,
			Name:         open(o.Folio, ColNameEnc, o.NameEnc),
			Age:          o.Age,
			Gender:       o.Gender,
			Phone:        open(o.Folio, ColPhoneEnc, o.PhoneEnc),
			Address:      open(o.Folio, ColAddressEnc, o.AddressEnc),
			Emails:       open(o.Folio, ColEmailsEnc, o.EmailsEnc),
			StudyType:    o.StudyType,
			Notes:        open(o.Folio, ColNotesEnc, o.NotesEnc),
			Results:      open(o.Folio, ColResultsEnc, o.ResultsEnc),
			Status:       o.Status,
		})
	}
	return view, failures
}

// Search keeps the rows where any column contains query. Matching ignores
// case and accents, so "LOPEZ" finds "López". An empty query keeps all.
func Search(view []ViewRow, query string) []ViewRow {
	q := fold(strings.TrimSpace(query))
	if q == "" {
		return view
	}

	var out []ViewRow
	for _, r := range view {
		for _, v := range r.Values() {
			if strings.Contains(fold(v), q) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// fold strips combining marks and applies Unicode case folding.
func fold(s string) string {
	if s == "" {
		return s
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), cases.Fold(), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// ExportCSV writes view with its header to w.
func ExportCSV(w io.Writer, view []ViewRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ViewColumns); err != nil {
		return err
	}
	for _, r := range view {
		if err := cw.Write(r.Values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

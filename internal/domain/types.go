// Package domain defines the six hbdesk entity types and the JSON shape they
// are persisted and exported in.
//
// JSON member names follow the keys the desktop app has always written to
// storage, so backups produced by older versions decode unchanged.
package domain

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Collection names one of the persisted entity arrays.
type Collection string

const (
	CollectionClients      Collection = "clients"
	CollectionMaterials    Collection = "materials"
	CollectionJobs         Collection = "jobs"
	CollectionQuotes       Collection = "quotes"
	CollectionInvoices     Collection = "invoices"
	CollectionAppointments Collection = "appointments"
)

// Collections lists every collection in dependency order: a collection only
// references collections that appear before it.
var Collections = []Collection{
	CollectionClients,
	CollectionMaterials,
	CollectionJobs,
	CollectionQuotes,
	CollectionInvoices,
	CollectionAppointments,
}

// Client is a customer.
type Client struct {
	ID         int    `json:"id"`
	GivenName  string `json:"nome"`
	FamilyName string `json:"cognome"`
	Email      string `json:"email"`
	Phone      string `json:"telefono"`

	Extra Extra `json:"-"`
}

// DisplayName returns "Nome Cognome".
func (c Client) DisplayName() string {
	return strings.TrimSpace(c.GivenName + " " + c.FamilyName)
}

// Material is a catalogue item that quotes can reference.
type Material struct {
	ID          int             `json:"id"`
	Description string          `json:"descrizione"`
	Quantity    decimal.Decimal `json:"qta"`
	UnitCost    decimal.Decimal `json:"costo"`
	UnitPrice   decimal.Decimal `json:"prezzo"`
	VATRate     decimal.Decimal `json:"iva"`

	Extra Extra `json:"-"`
}

// Attachment is a file uploaded against a job, stored inline as base64.
type Attachment struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Size       int64  `json:"size"`
	Data       string `json:"data"`
	UploadDate string `json:"uploadDate,omitempty"`

	Extra Extra `json:"-"`
}

// Job is a unit of work performed for a client.
type Job struct {
	ID          int             `json:"id"`
	Date        string          `json:"data"`
	ClientID    int             `json:"clienteId"`
	Location    string          `json:"luogo"`
	Description string          `json:"descrizione"`
	Hours       decimal.Decimal `json:"ore"`
	HourlyRate  decimal.Decimal `json:"tariffa"`
	Discount    decimal.Decimal `json:"sconto"`
	VATRate     decimal.Decimal `json:"iva"`
	Paid        bool            `json:"pagato"`
	Attachments []Attachment    `json:"files,omitempty"`

	Extra Extra `json:"-"`
}

// LineItem is one row of a quote or invoice.
type LineItem struct {
	ID          int              `json:"id,omitempty"`
	Description string           `json:"descrizione"`
	Quantity    decimal.Decimal  `json:"quantita"`
	UnitPrice   decimal.Decimal  `json:"prezzo"`
	LineTotal   decimal.Decimal  `json:"totale"`
	MaterialID  int              `json:"materialId,omitempty"`
	VATRate     *decimal.Decimal `json:"aliquota,omitempty"`

	Extra Extra `json:"-"`
}

// Quote is an offer sent to a client. Number is assigned by the user.
type Quote struct {
	ID           int              `json:"id"`
	Number       string           `json:"numero"`
	Date         string           `json:"data"`
	ClientID     int              `json:"clienteId"`
	Subject      string           `json:"oggetto"`
	ValidityDays int              `json:"validita"`
	Timing       string           `json:"tempi,omitempty"`
	Notes        string           `json:"note,omitempty"`
	Items        []LineItem       `json:"voci"`
	Total        *decimal.Decimal `json:"totale,omitempty"`
	Status       string           `json:"stato"`

	Extra Extra `json:"-"`
}

// Invoice is a bill, optionally generated from a job or an approved quote.
//
// Subtotal, Tax and Total are cached at creation time and are not kept in
// sync with Items automatically.
type Invoice struct {
	ID       int              `json:"id"`
	Number   string           `json:"numero"`
	Date     string           `json:"data"`
	ClientID int              `json:"clienteId"`
	JobID    int              `json:"jobId,omitempty"`
	QuoteID  int              `json:"quoteId,omitempty"`
	Subject  string           `json:"oggetto,omitempty"`
	Items    []LineItem       `json:"voci"`
	Subtotal decimal.Decimal  `json:"subtotale"`
	Tax      decimal.Decimal  `json:"iva"`
	Total    decimal.Decimal  `json:"totale"`
	VATRate  *decimal.Decimal `json:"aliquota,omitempty"`
	Paid     bool             `json:"pagata"`
	PaidAt   *string          `json:"dataPagamento,omitempty"`

	Extra Extra `json:"-"`
}

// Appointment is a calendar entry for a client visit.
//
// Newer records carry a single DateTime ("2024-05-02T09:30"); older ones
// carry Day and TimeOfDay separately.
type Appointment struct {
	ID            int             `json:"id"`
	DateTime      string          `json:"datetime,omitempty"`
	Day           string          `json:"data,omitempty"`
	TimeOfDay     string          `json:"ora,omitempty"`
	ClientID      int             `json:"clienteId"`
	Kind          string          `json:"tipo"`
	DurationHours decimal.Decimal `json:"durata"`
	Note          string          `json:"note,omitempty"`
	Status        string          `json:"stato"`

	Extra Extra `json:"-"`
}

// Date returns the calendar day of the appointment.
func (a Appointment) Date() string {
	if a.Day != "" {
		return a.Day
	}
	day, _, _ := strings.Cut(a.DateTime, "T")
	return day
}

// Time returns the time of day of the appointment, or "" if unknown.
func (a Appointment) Time() string {
	if a.TimeOfDay != "" {
		return a.TimeOfDay
	}
	_, clock, ok := strings.Cut(a.DateTime, "T")
	if !ok {
		return ""
	}
	return clock
}

var (
	clientAliases      = map[string]string{}
	materialAliases    = map[string]string{}
	attachmentAliases  = map[string]string{}
	jobAliases         = map[string]string{"clientId": "clienteId", "paid": "pagato", "attachments": "files"}
	lineItemAliases    = map[string]string{"vat": "aliquota"}
	quoteAliases       = map[string]string{"clientId": "clienteId", "items": "voci"}
	invoiceAliases     = map[string]string{"clientId": "clienteId", "items": "voci", "paid": "pagata"}
	appointmentAliases = map[string]string{"clientId": "clienteId"}
)

func (c *Client) UnmarshalJSON(data []byte) error {
	type plain Client
	extra, err := decodeRecord(data, (*plain)(c), clientAliases)
	c.Extra = extra
	return err
}

func (c Client) MarshalJSON() ([]byte, error) {
	type plain Client
	return encodeRecord(plain(c), c.Extra)
}

func (m *Material) UnmarshalJSON(data []byte) error {
	type plain Material
	extra, err := decodeRecord(data, (*plain)(m), materialAliases)
	m.Extra = extra
	return err
}

func (m Material) MarshalJSON() ([]byte, error) {
	type plain Material
	return encodeRecord(plain(m), m.Extra)
}

func (a *Attachment) UnmarshalJSON(data []byte) error {
	type plain Attachment
	extra, err := decodeRecord(data, (*plain)(a), attachmentAliases)
	a.Extra = extra
	return err
}

func (a Attachment) MarshalJSON() ([]byte, error) {
	type plain Attachment
	return encodeRecord(plain(a), a.Extra)
}

func (j *Job) UnmarshalJSON(data []byte) error {
	type plain Job
	extra, err := decodeRecord(data, (*plain)(j), jobAliases)
	j.Extra = extra
	return err
}

func (j Job) MarshalJSON() ([]byte, error) {
	type plain Job
	return encodeRecord(plain(j), j.Extra)
}

func (li *LineItem) UnmarshalJSON(data []byte) error {
	type plain LineItem
	extra, err := decodeRecord(data, (*plain)(li), lineItemAliases)
	li.Extra = extra
	return err
}

func (li LineItem) MarshalJSON() ([]byte, error) {
	type plain LineItem
	return encodeRecord(plain(li), li.Extra)
}

func (q *Quote) UnmarshalJSON(data []byte) error {
	type plain Quote
	extra, err := decodeRecord(data, (*plain)(q), quoteAliases)
	q.Extra = extra
	return err
}

func (q Quote) MarshalJSON() ([]byte, error) {
	type plain Quote
	return encodeRecord(plain(q), q.Extra)
}

func (inv *Invoice) UnmarshalJSON(data []byte) error {
	type plain Invoice
	extra, err := decodeRecord(data, (*plain)(inv), invoiceAliases)
	inv.Extra = extra
	return err
}

func (inv Invoice) MarshalJSON() ([]byte, error) {
	type plain Invoice
	return encodeRecord(plain(inv), inv.Extra)
}

func (a *Appointment) UnmarshalJSON(data []byte) error {
	type plain Appointment
	extra, err := decodeRecord(data, (*plain)(a), appointmentAliases)
	a.Extra = extra
	return err
}

func (a Appointment) MarshalJSON() ([]byte, error) {
	type plain Appointment
	return encodeRecord(plain(a), a.Extra)
}

// Clone returns a deep copy of the extra members.
func (e Extra) Clone() Extra {
	if e == nil {
		return nil
	}
	out := make(Extra, len(e))
	for k, v := range e {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

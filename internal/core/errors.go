package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrExchangeClosed is returned when importing into or closing a closed exchange.
	ErrExchangeClosed = errors.New("exchange is closed")

	// ErrFileTooLarge is returned when an import file exceeds the configured size.
	ErrFileTooLarge = errors.New("file too large")
)

// MessageKey identifies a localized import failure message.
type MessageKey string

const (
	MsgFileInvalid       MessageKey = "csv_file_invalid"
	MsgHeadersInvalid    MessageKey = "csv_file_headers_invalid"
	MsgJournalsInvalid   MessageKey = "csv_file_journals_invalid"
	MsgEntryDatesInvalid MessageKey = "csv_file_entry_dates_invalid"
	MsgEntryInvalid      MessageKey = "csv_file_entry_invalid"
)

// messageScope prefixes every import message key in the catalog.
const messageScope = "financial_year_exchange"

// CatalogKey returns the full catalog key of the message.
func (k MessageKey) CatalogKey() string {
	return messageScope + "." + string(k)
}

var invalidFileCodes = map[MessageKey]string{
	MsgFileInvalid:       "EXC001",
	MsgHeadersInvalid:    "EXC002",
	MsgJournalsInvalid:   "EXC003",
	MsgEntryDatesInvalid: "EXC004",
	MsgEntryInvalid:      "EXC005",
}

// Translator resolves a message key and its parameters to user-facing text.
type Translator interface {
	Translate(key string, params map[string]string) string
}

// InvalidFile is the single public failure of an exchange import.
// Error returns the localized message; Unwrap exposes the diagnostic cause,
// which is meant for logs and never shown to end users.
type InvalidFile struct {
	Key      MessageKey
	Message  string
	Internal error
}

func (e *InvalidFile) Error() string {
	return e.Message
}

func (e *InvalidFile) Unwrap() error {
	return e.Internal
}

// Code returns the support reference code for the failure.
func (e *InvalidFile) Code() string {
	if code, ok := invalidFileCodes[e.Key]; ok {
		return code
	}
	return defaultMessage.Code
}

// newInvalidFile builds an InvalidFile with its message resolved through tr.
func newInvalidFile(tr Translator, key MessageKey, params map[string]string, internal error) *InvalidFile {
	return &InvalidFile{
		Key:      key,
		Message:  tr.Translate(key.CatalogKey(), params),
		Internal: internal,
	}
}

// EntryInvalid is the diagnostic cause attached to a csv_file_entry_invalid failure.
type EntryInvalid struct {
	Number string
	Err    error
}

func (e *EntryInvalid) Error() string {
	return fmt.Sprintf("entry %q is invalid: %v", e.Number, e.Err)
}

func (e *EntryInvalid) Unwrap() error {
	return e.Err
}

// RecordInvalid reports that a record could not be saved.
type RecordInvalid struct {
	Record string
	ID     int64
	Err    error
}

func (e *RecordInvalid) Error() string {
	return fmt.Sprintf("%s %d is invalid: %v", e.Record, e.ID, e.Err)
}

func (e *RecordInvalid) Unwrap() error {
	return e.Err
}

package core

// validation.go provides record-level validation run before persistence.
//
// Entries are checked as a whole (number, date, items, balance) and every
// problem is collected so the diagnostic error attached to a failed import
// shows all of them. The pipeline itself still stops on the first invalid
// entry.

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places stored for item amounts.
const AmountScale = 4

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Field name, "items[2].real_debit" for nested values
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors is the list of problems found on one record.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// Validate checks an entry before it is written. Returns nil or ValidationErrors.
func (e Entry) Validate() error {
	var errs ValidationErrors

	if strings.TrimSpace(e.Number) == "" {
		errs = append(errs, ValidationError{Field: "number", Message: "can't be blank"})
	}
	if e.PrintedOn.IsZero() {
		errs = append(errs, ValidationError{Field: "printed_on", Message: "can't be blank"})
	}
	if e.JournalID == 0 {
		errs = append(errs, ValidationError{Field: "journal", Message: "must exist"})
	}
	if len(e.Items) == 0 {
		errs = append(errs, ValidationError{Field: "items", Message: "can't be empty"})
	}

	for i, item := range e.Items {
		amounts := []struct {
			field string
			value decimal.Decimal
		}{{"real_debit", item.RealDebit}, {"real_credit", item.RealCredit}}
		for _, a := range amounts {
			if !a.value.Equal(a.value.Truncate(AmountScale)) {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("items[%d].%s", i, a.field),
					Value:   a.value.String(),
					Message: fmt.Sprintf("has more than %d decimal places", AmountScale),
				})
			}
		}
		if item.RealDebit.IsNegative() {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("items[%d].real_debit", i),
				Value:   item.RealDebit.String(),
				Message: "must be greater than or equal to 0",
			})
		}
		if item.RealCredit.IsNegative() {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("items[%d].real_credit", i),
				Value:   item.RealCredit.String(),
				Message: "must be greater than or equal to 0",
			})
		}
	}

	if len(e.Items) > 0 {
		debit, credit := e.TotalDebit(), e.TotalCredit()
		if !debit.Equal(credit) {
			errs = append(errs, ValidationError{
				Field:   "balance",
				Value:   debit.Sub(credit).String(),
				Message: fmt.Sprintf("debit %s and credit %s are not balanced", debit, credit),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Validate checks an exchange against its financial year.
func (x Exchange) Validate(year FinancialYear) error {
	var errs ValidationErrors

	if x.FinancialYearID == 0 {
		errs = append(errs, ValidationError{Field: "financial_year", Message: "must exist"})
	}
	if x.StoppedOn.IsZero() {
		errs = append(errs, ValidationError{Field: "stopped_on", Message: "can't be blank"})
	} else if dateOnly(x.StoppedOn).After(dateOnly(year.StoppedOn)) {
		errs = append(errs, ValidationError{
			Field:   "stopped_on",
			Value:   x.StoppedOn.Format(time.DateOnly),
			Message: "must be on or before the financial year stop date",
		})
	}
	if !x.StartedOn.IsZero() && dateOnly(x.StartedOn).Before(dateOnly(year.StartedOn)) {
		errs = append(errs, ValidationError{
			Field:   "started_on",
			Value:   x.StartedOn.Format(time.DateOnly),
			Message: "must be on or after the financial year start date",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

package receipt

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/orbitravel/receipts/internal/suggestion"
)

// User facing messages
const (
	msgRequired           = "Este campo es obligatorio."
	msgInvalidEmail       = "Ingrese un correo electrónico válido."
	msgInvalidAmount      = "Ingrese un monto válido."
	msgAmountPositive     = "Ingrese un monto mayor a cero."
	msgAmountNotNegative  = "El monto no puede ser negativo."
	msgDescriptionMissing = "Por favor, ingrese una descripción del viaje primero."
	msgSuggestionFailed   = "Hubo un error al obtener sugerencias de la IA. Por favor, inténtelo de nuevo."
	msgRateLimited        = "Demasiadas solicitudes de sugerencias. Espere un momento e inténtelo de nuevo."
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their form names
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// Fields holds the receipt form exactly as the user typed it
type Fields struct {
	ClientName      string
	ClientEmail     string
	ClientAddress   string
	TripDescription string
	TripMonth       string
	PaxCount        string
	TripInclusions  string
	TotalTripValue  string
	AmountPaid      string
	GeneralDetails  string
}

// ParseFields reads the receipt form from posted values
func ParseFields(values url.Values) Fields {
	return Fields{
		ClientName:      values.Get("clientName"),
		ClientEmail:     values.Get("clientEmail"),
		ClientAddress:   values.Get("clientAddress"),
		TripDescription: values.Get("tripDescription"),
		TripMonth:       values.Get("tripMonth"),
		PaxCount:        values.Get("paxCount"),
		TripInclusions:  values.Get("tripInclusions"),
		TotalTripValue:  values.Get("totalTripValue"),
		AmountPaid:      values.Get("amountPaid"),
		GeneralDetails:  values.Get("generalDetails"),
	}
}

// ValidationErrors maps form field names to a message for the user
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fmt.Sprintf("invalid fields: %s", strings.Join(fields, ", "))
}

// Draft validates the fields and converts them into a draft receipt
func (f Fields) Draft() (Draft, error) {
	errs := ValidationErrors{}

	draft := Draft{
		ClientName:      strings.TrimSpace(f.ClientName),
		ClientEmail:     strings.TrimSpace(f.ClientEmail),
		ClientAddress:   strings.TrimSpace(f.ClientAddress),
		TripDescription: strings.TrimSpace(f.TripDescription),
		TripMonth:       strings.TrimSpace(f.TripMonth),
		PaxCount:        strings.TrimSpace(f.PaxCount),
		TripInclusions:  strings.TrimSpace(f.TripInclusions),
		TotalTripValue:  parseAmount("totalTripValue", f.TotalTripValue, errs),
		AmountPaid:      parseAmount("amountPaid", f.AmountPaid, errs),
		GeneralDetails:  strings.TrimSpace(f.GeneralDetails),
	}

	if err := validate.Struct(draft); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return Draft{}, fmt.Errorf("validating draft: %w", err)
		}
		for _, fe := range fieldErrs {
			// Amount parse errors are more specific than the range check
			if _, exists := errs[fe.Field()]; !exists {
				errs[fe.Field()] = messageFor(fe)
			}
		}
	}

	if len(errs) > 0 {
		return Draft{}, errs
	}
	return draft, nil
}

var (
	// "1.500" and "1.500,50": dots group thousands, the comma marks decimals
	groupedAmount = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+(,\d{1,2})?$`)
	// "1500", "1500,50" and "1500.50"
	plainAmount = regexp.MustCompile(`^-?\d+([.,]\d{1,2})?$`)
)

// parseAmount reads an amount the way formatMoney prints it, with or without
// grouping. Anything ambiguous, such as "1,500.00" or "1.50.0", is rejected.
func parseAmount(field, raw string, errs ValidationErrors) decimal.Decimal {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "$")
	raw = strings.Join(strings.Fields(raw), "")
	if raw == "" {
		errs[field] = msgRequired
		return decimal.Zero
	}

	switch {
	case groupedAmount.MatchString(raw):
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.Replace(raw, ",", ".", 1)
	case plainAmount.MatchString(raw):
		raw = strings.Replace(raw, ",", ".", 1)
	default:
		errs[field] = msgInvalidAmount
		return decimal.Zero
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		errs[field] = msgInvalidAmount
		return decimal.Zero
	}
	return d
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgRequired
	case "email":
		return msgInvalidEmail
	case "gt":
		return msgAmountPositive
	case "gte":
		return msgAmountNotNegative
	default:
		return msgRequired
	}
}

// SuggestFunc requests a suggestion for a trip description and month
type SuggestFunc func(ctx context.Context, description, month string) (*suggestion.Suggestion, error)

// Form is the receipt form: the user's fields plus any feedback shown with them
type Form struct {
	Fields  Fields
	Errors  ValidationErrors
	Warning string
}

// Submit validates the fields and hands the draft to onGenerate.
// Invalid fields block the submission and are recorded in f.Errors.
func (f *Form) Submit(onGenerate func(Draft) error) error {
	f.Errors = nil

	draft, err := f.Fields.Draft()
	if err != nil {
		var verrs ValidationErrors
		if errors.As(err, &verrs) {
			f.Errors = verrs
		}
		return err
	}
	return onGenerate(draft)
}

// Suggest asks onSuggest for trip content. On success only the inclusions and
// general details fields are overwritten; on failure no field changes and a
// warning is set instead.
func (f *Form) Suggest(ctx context.Context, onSuggest SuggestFunc) (*suggestion.Suggestion, error) {
	f.Warning = ""

	if strings.TrimSpace(f.Fields.TripDescription) == "" {
		f.Warning = msgDescriptionMissing
		return nil, ErrDescriptionRequired
	}

	s, err := onSuggest(ctx, f.Fields.TripDescription, f.Fields.TripMonth)
	if err != nil {
		f.Warning = WarningFor(err)
		return nil, err
	}

	f.Fields.TripInclusions = s.Inclusions
	f.Fields.GeneralDetails = formatDetails(s.Details)
	return s, nil
}

// WarningFor returns the message shown to the user for a suggestion error
func WarningFor(err error) string {
	switch {
	case err == nil, errors.Is(err, ErrStaleSuggestion):
		return ""
	case errors.Is(err, ErrDescriptionRequired):
		return msgDescriptionMissing
	case errors.Is(err, ErrRateLimited):
		return msgRateLimited
	default:
		return msgSuggestionFailed
	}
}

// formatDetails renders suggested details one per line
func formatDetails(details []string) string {
	lines := make([]string, len(details))
	for i, d := range details {
		lines[i] = "- " + d
	}
	return strings.Join(lines, "\n")
}

package validation

import (
	"regexp"
	"sort"
	"strings"
	"time"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	NameRegex  = regexp.MustCompile(`^[A-Za-z][A-Za-z .'\-]{1,99}$`)
	PhoneRegex = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
	PlateRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9 \-]{1,14}$`)
)

// MaxAmount bounds every cost, rate and price field a form accepts.
const MaxAmount = 1_000_000

func ValidateName(name string) bool {
	return NameRegex.MatchString(strings.TrimSpace(name))
}

func ValidatePhone(phone string) bool {
	return PhoneRegex.MatchString(strings.TrimSpace(phone))
}

func ValidatePlate(plate string) bool {
	return PlateRegex.MatchString(strings.TrimSpace(plate))
}

func ValidateAmount(v float64) bool {
	return v > 0 && v <= MaxAmount
}

func ValidateYear(year int) bool {
	return year >= 1900 && year <= time.Now().Year()+1
}

func ValidateCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// ozzo rules built from the predicates above, shared by the form types.
var (
	Name     = ozzo.By(rule(ValidateName, "must contain only letters, spaces, dots, apostrophes or dashes"))
	Phone    = ozzo.By(rule(ValidatePhone, "must be 10 to 15 digits with an optional leading +"))
	Plate    = ozzo.By(rule(ValidatePlate, "must be 2 to 15 uppercase letters, digits, spaces or dashes"))
	Year     = ozzo.By(intRule(ValidateYear, "must be between 1900 and next year"))
	Amount   = ozzo.By(floatRule(ValidateAmount, "must be greater than 0 and at most 1000000"))
	Required = ozzo.By(rule(func(s string) bool { return strings.TrimSpace(s) != "" }, "cannot be blank"))
)

func rule(ok func(string) bool, msg string) ozzo.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if !ok(s) {
			return ozzo.NewError("validation_invalid", msg)
		}
		return nil
	}
}

func intRule(ok func(int) bool, msg string) ozzo.RuleFunc {
	return func(value interface{}) error {
		n, _ := value.(int)
		if !ok(n) {
			return ozzo.NewError("validation_invalid", msg)
		}
		return nil
	}
}

func floatRule(ok func(float64) bool, msg string) ozzo.RuleFunc {
	return func(value interface{}) error {
		f, _ := value.(float64)
		if !ok(f) {
			return ozzo.NewError("validation_invalid", msg)
		}
		return nil
	}
}

// Errors maps a form field to its first failure message.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return strings.Join(parts, "; ")
}

// FromOzzo flattens an ozzo.Errors value into Errors. Any other error is
// returned unchanged.
func FromOzzo(err error) error {
	if err == nil {
		return nil
	}
	oe, ok := err.(ozzo.Errors)
	if !ok {
		return err
	}
	out := make(Errors, len(oe))
	for field, ferr := range oe {
		out[field] = ferr.Error()
	}
	return out
}

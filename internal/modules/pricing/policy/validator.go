package policy

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a policy validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

var structValidator = newStructValidator()

// newStructValidator reports fields by their YAML keys.
func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field ranges via struct tags, then the cross-field rules
// the tags cannot express. Returns ValidationErrors if the policy is invalid.
func Validate(p Policy) error {
	var errs ValidationErrors

	if err := structValidator.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("failed to validate policy: %w", err)
		}
		for _, fe := range fieldErrs {
			errs = append(errs, ValidationError{
				Field:   strings.TrimPrefix(fe.Namespace(), "Policy."),
				Message: describe(fe),
			})
		}
	}

	flags := p.InventoryFlags
	if flags.LowStockDaysOfCoverLT > flags.OverstockDaysOfCoverGT {
		errs = append(errs, ValidationError{
			Field:   "inventory_flags",
			Message: "low_stock_days_of_cover_lt must not exceed overstock_days_of_cover_gt",
		})
	}

	change := p.Guardrails.MaxDailyChange
	if change.Enabled && change.LowStockPct >= change.DefaultPct {
		errs = append(errs, ValidationError{
			Field:   "guardrails.max_daily_change.low_stock_pct",
			Message: "must be < default_pct (low stock narrows the band)",
		})
	}
	if change.Enabled && change.OverstockPct <= change.DefaultPct {
		errs = append(errs, ValidationError{
			Field:   "guardrails.max_daily_change.overstock_pct",
			Message: "must be > default_pct (overstock widens the downward band)",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "lt":
		return "must be < " + fe.Param()
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

package scenario

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/chainopt/chainopt/pkg/errors"
	"github.com/chainopt/chainopt/pkg/lp"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	// Report file keys rather than Go field names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks field constraints and the references between layers and
// connections. Shape checks against layer sizes happen in Build, where the
// chain reports them as DIMENSION_MISMATCH.
func (s *Scenario) Validate() error {
	if err := validate.Struct(s); err != nil {
		return formatValidationError(err)
	}

	seen := make(map[string]bool, len(s.Layers))
	for _, l := range s.Layers {
		if seen[l.Name] {
			return errors.New(errors.ErrCodeInvalidScenario, "layers: duplicate layer %q", l.Name)
		}
		seen[l.Name] = true

		if len(l.LOS) > 0 && l.Kind != "demand" {
			return errors.New(errors.ErrCodeInvalidScenario, "layers.%s.los: only demand layers take level-of-service constraints", l.Name)
		}
		los := make(map[string]bool, len(l.LOS))
		for _, c := range l.LOS {
			if los[c.Name] {
				return errors.New(errors.ErrCodeInvalidScenario, "layers.%s.los: duplicate constraint %q", l.Name, c.Name)
			}
			los[c.Name] = true
			if _, err := lp.ParseSense(c.Sense); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidScenario, err, "layers.%s.los.%s", l.Name, c.Name)
			}
		}
	}

	type pair struct{ from, to string }
	blocks := make(map[pair]bool, len(s.Connections))
	for _, c := range s.Connections {
		for _, name := range []string{c.From, c.To} {
			if !seen[name] {
				return errors.New(errors.ErrCodeInvalidScenario, "connections: unknown layer %q", name)
			}
		}
		if blocks[pair{c.From, c.To}] {
			return errors.New(errors.ErrCodeInvalidScenario, "connections: %s -> %s declared twice", c.From, c.To)
		}
		blocks[pair{c.From, c.To}] = true
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format.
func formatValidationError(err error) error {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Wrap(errors.ErrCodeInvalidScenario, err, "invalid scenario")
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := strings.TrimPrefix(e.Namespace(), "Scenario.")
		var msg string
		switch e.Tag() {
		case "required":
			msg = "field is required"
		case "min":
			msg = fmt.Sprintf("must have at least %s entries", e.Param())
		case "max":
			msg = fmt.Sprintf("must not exceed %s", e.Param())
		case "gt", "gte":
			msg = fmt.Sprintf("must be %s %s", map[string]string{"gt": ">", "gte": ">="}[e.Tag()], e.Param())
		case "oneof":
			msg = fmt.Sprintf("must be one of [%s]", e.Param())
		case "nefield":
			msg = fmt.Sprintf("must differ from %s", e.Param())
		default:
			msg = fmt.Sprintf("validation failed (%s)", e.Tag())
		}
		return errors.New(errors.ErrCodeInvalidScenario, "%s: %s", field, msg)
	}
	return errors.Wrap(errors.ErrCodeInvalidScenario, err, "invalid scenario")
}

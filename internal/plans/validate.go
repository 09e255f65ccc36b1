package plans

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks field constraints on a plan definition.
func Validate(p Plan) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid plan %q: %w", p.ID, err)
	}
	return nil
}

package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/storefront/merchandising/internal/domain/catalog"
)

// validate checks request DTOs with the same `binding` tags gin uses, so
// callers that bypass HTTP get identical validation.
var validate = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	return v
}

func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return catalog.NewValidationError("Invalid request: %v", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return catalog.NewValidationError("Invalid request: %s", strings.Join(msgs, "; "))
}

// SubtreeLockKey is the lock key guarding every category below rootID
func SubtreeLockKey(merchantID, rootID uuid.UUID) string {
	return "category-subtree:" + merchantID.String() + ":" + rootID.String()
}

// PlacementLockKey is the lock key guarding one placement list
func PlacementLockKey(merchantID uuid.UUID, position catalog.Position) string {
	return "placement:" + merchantID.String() + ":" + string(position)
}

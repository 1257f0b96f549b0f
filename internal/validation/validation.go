package validation

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ndewijer/Dividend-Portfolio-Tracker/internal/apperrors"
)

// ValidateUUID checks if a string is a valid UUID
func ValidateUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidUUID, id)
	}
	return nil
}

// ValidateOwnerID checks that an owner ID is present and a valid UUID.
func ValidateOwnerID(ownerID string) error {
	if ownerID == "" {
		return apperrors.ErrInvalidOwner
	}
	if _, err := uuid.Parse(ownerID); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidOwner, ownerID)
	}
	return nil
}

package workflow

import (
	"errors"

	"accession/internal/services"
)

// storageError tags unclassified failures as storage faults. Client faults
// pass through so callers still see validation, state and not-found errors.
func storageError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, services.ErrValidation) || errors.Is(err, services.ErrNotFound) {
		return err
	}
	return services.Wrap(services.ErrStorage, "workflow", operation, "", err)
}

// Package validation checks request structs with go-playground/validator.
// Failures come back as *RequestError, which matches services.ErrValidation
// so callers classify them like any other client fault.
package validation

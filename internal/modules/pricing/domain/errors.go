package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks a caller-supplied value that violates a
	// precondition. Retrying with the same input reproduces it.
	ErrInvalidInput = errors.New("invalid input")

	// ErrContractViolation marks a pricing context that breaks its own data
	// contract (for example a non-positive unit cost). It matches
	// ErrInvalidInput but only invalidates that one context.
	ErrContractViolation = fmt.Errorf("%w: context contract violated", ErrInvalidInput)

	// ErrInvalidState marks a contradictory outcome reached from valid
	// inputs, usually a policy authoring bug. Fatal to one context.
	ErrInvalidState = errors.New("invalid state")

	// ErrOracleContract is returned when the demand oracle yields a value
	// outside its contract (negative, NaN or infinite units).
	ErrOracleContract = fmt.Errorf("%w: demand oracle contract violated", ErrInvalidState)
)

// StageError reports which guardrail stage drove a price to an invalid value,
// with the thresholds it was using.
type StageError struct {
	Stage  string
	Price  float64
	Detail string
}

func (e *StageError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("guardrail stage %s produced non-positive price %.4f", e.Stage, e.Price)
	}
	return fmt.Sprintf("guardrail stage %s produced non-positive price %.4f (%s)", e.Stage, e.Price, e.Detail)
}

// Unwrap makes StageError match ErrInvalidState.
func (e *StageError) Unwrap() error {
	return ErrInvalidState
}

package config

import (
	"errors"
	"fmt"
)

// ErrMissingArgument matches every MissingArgumentError through errors.Is.
var ErrMissingArgument = errors.New("missing required argument")

// MissingArgumentError reports a required target property that rendered empty.
type MissingArgumentError struct {
	Field string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingArgument.Error(), e.Field)
}

func (e *MissingArgumentError) Is(target error) bool {
	return target == ErrMissingArgument
}

// InvalidArgumentError reports a target property that is present but unusable.
type InvalidArgumentError struct {
	Field  string
	Reason string
	Err    error
}

func (e *InvalidArgumentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid argument %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid argument %s: %s", e.Field, e.Reason)
}

func (e *InvalidArgumentError) Unwrap() error {
	return e.Err
}

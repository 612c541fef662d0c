// Package errors is our internal errors package. It should be used in place of the standard "errors" package,
// "golang.org/x/xerrors", or "fmt.Errorf".
// This package ensures that all errors have a correct category & collect stack-traces.
package errors

import "golang.org/x/xerrors"

// ConfigurationError represent a configuration error. When used, it should ideally also point towards the configuration
// value that caused this error to occur.
type ConfigurationError struct {
	E           error
	description string
	resolution  string
}

// NewConfigurationError returns a new ConfigurationError. The description & resolution are optional and are used when
// presenting the error to an end-user.
func NewConfigurationError(title, description, resolution string) ConfigurationError {
	return ConfigurationError{E: xerrors.New(title), description: description, resolution: resolution}
}

// AsConfigurationError checks whether the error is a configuration error
func AsConfigurationError(err error) (ConfigurationError, bool) {
	var e ConfigurationError
	ok := As(err, &e)
	return e, ok
}

// Error returns the error message of this error
func (e ConfigurationError) Error() string {
	return e.E.Error()
}

// Description is a longer explanation of what went wrong
func (e ConfigurationError) Description() string {
	return e.description
}

// Resolution points an end-user towards a fix
func (e ConfigurationError) Resolution() string {
	return e.resolution
}

// Type is used by the error decoration
func (e ConfigurationError) Type() string {
	return "Configuration Error"
}

// Unwrap returns the wrapped error
func (e ConfigurationError) Unwrap() error {
	return e.E
}

// ExecutionError is an error that was encountered during the execution of a different task. Specifically, this is being
// used with the `conductor run` command, which executes the BDD runner as a sub-process.
// Execution errors can store an optional error-code.
type ExecutionError struct {
	E    error
	Code int
}

// NewExecutionError returns a new ExecutionError
func NewExecutionError(code int, msg string, a ...any) ExecutionError {
	return ExecutionError{Code: code, E: xerrors.Errorf(msg, a...)}
}

// AsExecutionError checks whether the error is an execution error.
func AsExecutionError(err error) (ExecutionError, bool) {
	var e ExecutionError
	ok := As(err, &e)
	return e, ok
}

// Error returns the error message of this error
func (e ExecutionError) Error() string {
	return e.E.Error()
}

// Unwrap returns the wrapped error
func (e ExecutionError) Unwrap() error {
	return e.E
}

// InputError is an error caused by user input
type InputError struct {
	E error
}

// NewInputError returns a new InputError
func NewInputError(msg string, a ...any) InputError {
	return InputError{E: xerrors.Errorf(msg, a...)}
}

// AsInputError checks whether the error is an input error
func AsInputError(err error) (InputError, bool) {
	var e InputError
	ok := As(err, &e)
	return e, ok
}

// Error returns the error message of this error
func (e InputError) Error() string {
	return e.E.Error()
}

// Unwrap returns the wrapped error
func (e InputError) Unwrap() error {
	return e.E
}

// InternalError is an internal error. This error type should only be used if an end-user cannot act upon it.
type InternalError struct {
	E error
}

// NewInternalError returns a new InternalError
func NewInternalError(msg string, a ...any) InternalError {
	return InternalError{E: xerrors.Errorf(msg, a...)}
}

// AsInternalError checks whether the error is an internal error
func AsInternalError(err error) (InternalError, bool) {
	var e InternalError
	ok := As(err, &e)
	return e, ok
}

// Error returns the error message of this error
func (e InternalError) Error() string {
	return e.E.Error()
}

// Unwrap returns the wrapped error
func (e InternalError) Unwrap() error {
	return e.E
}

// SystemError is returned when the CLI encountered a system error. This is most likely either an error during file
// read/write or while spawning a sub-process.
type SystemError struct {
	E error
}

// NewSystemError returns a new SystemError
func NewSystemError(msg string, a ...any) SystemError {
	return SystemError{E: xerrors.Errorf(msg, a...)}
}

// AsSystemError checks whether the error is a system error
func AsSystemError(err error) (SystemError, bool) {
	var e SystemError
	ok := As(err, &e)
	return e, ok
}

// Error returns the error message of this error
func (e SystemError) Error() string {
	return e.E.Error()
}

// Unwrap returns the wrapped error
func (e SystemError) Unwrap() error {
	return e.E
}

package entity

import "errors"

// Error kinds of the transfer flow. Match with errors.Is.
var (
	ErrValidation          = errors.New("validation error")
	ErrUnknownToken        = errors.New("unknown token")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBalanceQuery        = errors.New("balance query failed")
	ErrApprovalFailed      = errors.New("approval failed")
	ErrExecutionFailed     = errors.New("execution failed")
	ErrAccountResolution   = errors.New("account resolution failed")
)

// FlowError carries a user-facing message together with its kind and underlying cause.
type FlowError struct {
	Kind    error
	Message string
	Cause   error
}

// NewFlowError builds a FlowError of the given kind.
func NewFlowError(kind error, message string, cause error) *FlowError {
	return &FlowError{Kind: kind, Message: message, Cause: cause}
}

func (e *FlowError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	if e.Kind != nil {
		return e.Kind.Error()
	}
	return ""
}

func (e *FlowError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// IsClientError reports whether err stems from bad input rather than a failed operation.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrUnknownToken)
}

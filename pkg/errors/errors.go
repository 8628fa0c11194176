package errors

import (
	stderrors "errors"
	"fmt"
)

type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}

var (
	ErrConfigLoad      = "CONFIG_LOAD_ERROR"
	ErrDatabaseConnect = "DATABASE_CONNECT_ERROR"
	ErrRPConnect       = "RPC_CONNECT_ERROR"
	ErrValidation      = "VALIDATION_ERROR"
	ErrNotFound        = "NOT_FOUND"
	ErrConfigNotFound  = "CONFIG_NOT_FOUND"
	ErrStepUpdate      = "STEP_UPDATE_ERROR"
	ErrPoolAdmit       = "POOL_ADMIT_ERROR"
	ErrRewardCalc      = "REWARD_CALCULATION_ERROR"
	ErrChainSubmission = "CHAIN_SUBMISSION_ERROR"
	ErrLedgerAppend    = "LEDGER_APPEND_ERROR"
)

package shrderror

import (
	"errors"
	"fmt"
)

const (
	SHRD_UNEXPECTED   = "SHRDU"
	SHRD_INPUT        = "SHRDI"
	SHRD_PRECONDITION = "SHRDP"
	SHRD_CONSISTENCY  = "SHRDC"
	SHRD_STORE        = "SHRDS"
	SHRD_ABORTED      = "SHRDA"
)

var existingErrorCodeMap = map[string]string{
	SHRD_INPUT:        "invalid input",
	SHRD_PRECONDITION: "precondition violated",
	SHRD_CONSISTENCY:  "shard ranges inconsistent",
	SHRD_STORE:        "container store error",
	SHRD_ABORTED:      "aborted by operator",
}

func GetMessageByCode(errorCode string) string {
	rep, ok := existingErrorCodeMap[errorCode]
	if ok {
		return rep
	}
	return "Unexpected error"
}

var _ error = &ShrdError{}

type ShrdError struct {
	Err error

	ErrorCode string
}

func New(errorCode string, errorMsg string) *ShrdError {
	return &ShrdError{
		Err:       errors.New(errorMsg),
		ErrorCode: errorCode,
	}
}

func Newf(errorCode string, format string, a ...any) *ShrdError {
	return &ShrdError{
		Err:       fmt.Errorf(format, a...),
		ErrorCode: errorCode,
	}
}

func (er *ShrdError) Error() string {
	return fmt.Sprintf("Code: %s. Name: %s. Description: %s.",
		er.ErrorCode, GetMessageByCode(er.ErrorCode), er.Err)
}

func (er *ShrdError) Unwrap() error {
	return er.Err
}

func CodeOf(err error) string {
	var se *ShrdError
	if errors.As(err, &se) {
		return se.ErrorCode
	}
	return SHRD_UNEXPECTED
}

// ExitCode maps an error to the process exit status: operator aborts
// exit 1, every validation, precondition, input and store failure
// exits 2.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if CodeOf(err) == SHRD_ABORTED {
		return 1
	}
	return 2
}

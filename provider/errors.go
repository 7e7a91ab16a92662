package provider

import (
	"errors"
	"fmt"

	"github.com/blocknative/walletprovider/structs"
)

var (
	ErrEngineSealed = errors.New("engine already serves requests, handlers cannot be added")
	ErrNilHandler   = errors.New("handler is nil")
	ErrUnhandled    = &structs.RPCError{Code: structs.CodeMethodNotFound, Message: "method not found"}
)

// DispatchError is returned by Dispatch when the chain fails a request.
// It unwraps to the original error.
type DispatchError struct {
	Method string
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s: %s", e.Method, e.Err.Error())
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// ToRPCError converts any error into a JSON-RPC error object. Errors that
// already are (or wrap) an RPCError keep their code.
func ToRPCError(err error) *structs.RPCError {
	var rerr *structs.RPCError
	if errors.As(err, &rerr) {
		return rerr
	}

	var coded interface {
		ErrorCode() int
	}
	if errors.As(err, &coded) {
		return &structs.RPCError{Code: coded.ErrorCode(), Message: err.Error()}
	}

	return &structs.RPCError{Code: structs.CodeServerError, Message: err.Error()}
}

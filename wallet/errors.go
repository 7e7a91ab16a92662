package wallet

import (
	"errors"
	"fmt"

	"github.com/blocknative/walletprovider/structs"
)

// Error values returned to JSON-RPC callers keep the identifiers wallet
// libraries already match on.
var (
	ErrAddressNotFound                   = errors.New("ADDRESS_NOT_FOUND")
	ErrDataMissingForSignPersonalMessage = errors.New("DATA_MISSING_FOR_SIGN_PERSONAL_MESSAGE")
	ErrDataMissingForSignTypedData       = errors.New("DATA_MISSING_FOR_SIGN_TYPED_DATA")
	ErrSenderInvalidOrNotSupplied        = errors.New("SENDER_INVALID_OR_NOT_SUPPLIED")
	ErrFromAddressMissingOrInvalid       = errors.New("FROM_ADDRESS_MISSING_OR_INVALID")

	ErrInvalidRecipient = errors.New("transaction parameter to is not a valid address")
	ErrNonceMissing     = errors.New("nonce not present on transaction")
	ErrTxParamsMissing  = errors.New("transaction parameters missing or malformed")

	ErrMethodNotSupported = &structs.RPCError{Code: 4200, Message: "METHOD_NOT_SUPPORTED"}
)

// ValidationError reports request parameters rejected before signing.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Err.Error())
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) ErrorCode() int {
	return structs.CodeInvalidParams
}

// SignerError wraps a failure of the external signing authority. The message
// is the signer's own, unchanged.
type SignerError struct {
	Op  string
	Err error
}

func (e *SignerError) Error() string {
	return e.Err.Error()
}

func (e *SignerError) Unwrap() error {
	return e.Err
}

func (e *SignerError) ErrorCode() int {
	var coded interface{ ErrorCode() int }
	if errors.As(e.Err, &coded) {
		return coded.ErrorCode()
	}
	return structs.CodeServerError
}

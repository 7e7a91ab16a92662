package structs

import (
	"encoding/json"
	"fmt"
)

// Version is the only JSON-RPC protocol version the provider speaks.
const Version = "2.0"

// Standard JSON-RPC 2.0 error codes, plus the server-error range used by Ethereum nodes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeServerError    = -32000
	CodeLimitExceeded  = -32005
)

type Request struct {
	ID         int64  `json:"id"`
	VersionTag string `json:"jsonrpc"`
	Method     string `json:"method"`
	Params     []any  `json:"params"`
}

func (r Request) Loggable() map[string]any {
	return map[string]any{
		"id":     r.ID,
		"method": r.Method,
	}
}

// Param returns the i-th positional parameter or nil when it is not present.
func (r Request) Param(i int) any {
	if i < 0 || i >= len(r.Params) {
		return nil
	}
	return r.Params[i]
}

// StringParam returns the i-th positional parameter if it is a string.
func (r Request) StringParam(i int) (string, bool) {
	s, ok := r.Param(i).(string)
	return s, ok
}

// DecodeParam re-encodes the i-th parameter into v. It is used for object
// parameters that arrive as map[string]any after the envelope was decoded.
func (r Request) DecodeParam(i int, v any) error {
	p := r.Param(i)
	if p == nil {
		return fmt.Errorf("missing param %d", i)
	}
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

type Response struct {
	ID         int64           `json:"id"`
	VersionTag string          `json:"jsonrpc"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      *RPCError       `json:"error,omitempty"`
}

// NewResult builds a successful response for id, encoding v as the result.
func NewResult(id int64, v any) (Response, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Response{}, err
	}
	return Response{ID: id, VersionTag: Version, Result: b}, nil
}

// NewErrorResponse builds an error response for id.
func NewErrorResponse(id int64, rerr *RPCError) Response {
	return Response{ID: id, VersionTag: Version, Error: rerr}
}

// DecodeResult unmarshals the result into v.
func (r Response) DecodeResult(v any) error {
	if r.Error != nil {
		return r.Error
	}
	if len(r.Result) == 0 {
		return fmt.Errorf("empty result for request %d", r.ID)
	}
	return json.Unmarshal(r.Result, v)
}

// ResultString returns the result rendered as a string. JSON strings are
// returned unquoted, numbers are returned in their decimal form.
func (r Response) ResultString() (string, error) {
	if r.Error != nil {
		return "", r.Error
	}

	var s string
	if err := json.Unmarshal(r.Result, &s); err == nil {
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(r.Result, &n); err != nil {
		return "", fmt.Errorf("result is neither string nor number: %s", string(r.Result))
	}
	return n.String(), nil
}

type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// ErrorCode satisfies go-ethereum's rpc.Error interface.
func (e *RPCError) ErrorCode() int {
	return e.Code
}

package provider

import (
	"context"

	"github.com/blocknative/walletprovider/structs"
)

// Handler is a single element of the middleware chain.
type Handler interface {
	HandleRequest(ctx context.Context, req structs.Request) Outcome
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req structs.Request) Outcome

func (f HandlerFunc) HandleRequest(ctx context.Context, req structs.Request) Outcome {
	return f(ctx, req)
}

type outcomeKind uint8

const (
	kindNext outcomeKind = iota
	kindNextModified
	kindEnd
)

// Outcome is what a handler decided to do with a request. The zero value
// passes the request to the next handler.
type Outcome struct {
	kind   outcomeKind
	result any
	err    error
	req    structs.Request
}

// Next passes the request to the next handler unchanged.
func Next() Outcome {
	return Outcome{kind: kindNext}
}

// NextWith passes a modified request to the next handler.
func NextWith(req structs.Request) Outcome {
	return Outcome{kind: kindNextModified, req: req}
}

// End answers the request with result.
func End(result any) Outcome {
	return Outcome{kind: kindEnd, result: result}
}

// EndWithError terminates the request with err.
func EndWithError(err error) Outcome {
	return Outcome{kind: kindEnd, err: err}
}

// EndWithResponse answers with a response that was produced elsewhere, for
// example by a node. An error carried by the response becomes the outcome error.
func EndWithResponse(resp structs.Response) Outcome {
	if resp.Error != nil {
		return EndWithError(resp.Error)
	}
	return Outcome{kind: kindEnd, result: resp.Result}
}

func (o Outcome) Answered() bool {
	return o.kind == kindEnd
}

func (o Outcome) Err() error {
	return o.err
}

func (o Outcome) Result() any {
	return o.result
}

// Request returns the modified request for NextWith outcomes.
func (o Outcome) Request() (structs.Request, bool) {
	return o.req, o.kind == kindNextModified
}

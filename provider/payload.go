package provider

import (
	"time"

	uberatomic "go.uber.org/atomic"
	"golang.org/x/exp/rand"

	"github.com/blocknative/walletprovider/structs"
)

const extraDigits = 1000

var lastID = uberatomic.NewInt64(0)

func init() {
	rand.Seed(uint64(time.Now().UnixNano()))
}

// RandomID returns a request identifier made of the current time in
// milliseconds followed by three random digits. Identifiers handed out by one
// process are strictly increasing, so a burst of calls within the same
// millisecond never repeats a value.
func RandomID() int64 {
	for {
		id := time.Now().UnixMilli()*extraDigits + rand.Int63n(extraDigits)
		last := lastID.Load()
		if id <= last {
			id = last + 1
		}
		if lastID.CompareAndSwap(last, id) {
			return id
		}
	}
}

// NormalizePayload completes a partial request. Caller supplied id, method and
// params are never overwritten; the protocol version is always forced.
func NormalizePayload(partial structs.Request) structs.Request {
	req := partial
	if req.ID == 0 {
		req.ID = RandomID()
	}
	req.VersionTag = structs.Version
	if req.Params == nil {
		req.Params = []any{}
	}
	return req
}

package gethws

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lthibault/log"
	uberatomic "go.uber.org/atomic"

	"github.com/blocknative/walletprovider/node/client"
	"github.com/blocknative/walletprovider/structs"
)

const (
	healthInterval      = 2 * time.Second
	reconnectDelay      = time.Second
	decodeWorkersNumber = 4
	workersQueueLen     = 50
	inputQueueLen       = 100

	healthCheckID = 1
)

type Conn struct {
	c  *websocket.Conn
	rc *RespCache

	l log.Logger

	input     chan []byte
	url       string
	messageID *uberatomic.Int64

	lastRead *uberatomic.Int64
	healthy  *uberatomic.Bool

	Done chan struct{}

	closeLock sync.Mutex
	isClosed  bool
}

func NewConn(l log.Logger, input chan []byte) *Conn {
	return &Conn{
		l:         l.WithField("module", "gethws"),
		messageID: uberatomic.NewInt64(healthCheckID + 1),
		lastRead:  uberatomic.NewInt64(0),
		healthy:   uberatomic.NewBool(false),
		input:     input,
		Done:      make(chan struct{}),
		rc:        NewRespCache(),
	}
}

// RequestRPC sends method with already encoded params and waits for the
// response carrying the same id.
func (conn *Conn) RequestRPC(ctx context.Context, method string, params []byte) (resp structs.Response, err error) {
	respCh := conn.rc.PoolGet()
	defer conn.rc.PoolPut(respCh)

	id := conn.messageID.Inc()
	conn.rc.Set(id, respCh)

	select {
	case conn.input <- concatBytes(id, method, params):
	case <-conn.Done:
		conn.rc.Del(id)
		return resp, client.ErrConnectionFailure
	case <-ctx.Done():
		conn.rc.Del(id)
		return resp, ctx.Err()
	}

	select {
	case resp = <-respCh:
	case <-conn.Done:
		conn.rc.Del(id)
		return resp, client.ErrConnectionFailure
	case <-ctx.Done():
		conn.rc.Del(id)
		return resp, ctx.Err()
	}
	return resp, nil
}

func (conn *Conn) Healthy() bool {
	return conn.healthy.Load()
}

func (conn *Conn) Close() {
	conn.closeLock.Lock()
	defer conn.closeLock.Unlock()

	if conn.isClosed {
		return
	}

	conn.isClosed = true
	conn.healthy.Store(false)
	conn.c.Close()
	close(conn.Done)
}

func (conn *Conn) Connect(ctx context.Context, url string) (err error) {
	conn.c, _, err = websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	conn.url = url

	go conn.readHandler()
	go conn.writeHandler()

	conn.healthy.Store(true)
	return nil
}

func (conn *Conn) rpcDecoder(in <-chan []byte) {
	for msg := range in {
		r := structs.Response{}
		if err := json.Unmarshal(msg, &r); err != nil {
			conn.l.WithError(err).Error("error decoding response")
			continue
		}

		if r.ID == healthCheckID {
			continue
		}

		ch, ok := conn.rc.Get(r.ID)
		if !ok {
			if r.Error != nil {
				conn.l.With(log.F{
					"id":    r.ID,
					"error": r.Error.Message,
				}).Info("error for abandoned call")
			}
			continue
		}

		select {
		case ch <- r:
		default:
			conn.l.WithField("id", r.ID).Error("impossible to send response")
		}
	}
}

func (conn *Conn) readHandler() {
	defer conn.Close()

	ch := make(chan []byte, workersQueueLen)
	defer close(ch)
	for i := 0; i < decodeWorkersNumber; i++ {
		go conn.rpcDecoder(ch)
	}

	for {
		_, message, err := conn.c.ReadMessage()
		if err != nil {
			conn.l.WithError(err).Warn("error reading from ws")
			return
		}
		conn.lastRead.Store(time.Now().UnixNano())
		ch <- message
	}
}

func (conn *Conn) writeHandler() {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	defer conn.Close()

	// allow to wait first full interval
	conn.lastRead.Store(time.Now().UnixNano())
	for {
		select {
		case in := <-conn.input:
			if err := conn.c.WriteMessage(websocket.TextMessage, in); err != nil {
				conn.l.WithError(err).Warn("error writing to ws")
				return
			}
		case <-ticker.C:
			if time.Since(time.Unix(0, conn.lastRead.Load())) > healthInterval*2 {
				conn.l.Warn("ws timed out")
				return
			}
			if err := conn.c.WriteMessage(websocket.TextMessage, concatBytes(healthCheckID, "net_version", []byte("[]"))); err != nil {
				conn.l.WithError(err).Warn("error writing to ws")
				return
			}
		case <-conn.Done:
			err := conn.c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				conn.l.WithError(err).Debug("error closing ws")
				return
			}
			conn.l.Info("closing connection")
			return
		}
	}
}

// ReConn keeps websocket connections to nodes alive and hands them out round
// robin.
type ReConn struct {
	lock sync.RWMutex
	l    log.Logger

	c    []*Conn
	next *uberatomic.Uint32
}

func NewReConn(l log.Logger) *ReConn {
	return &ReConn{l: l, next: uberatomic.NewUint32(0)}
}

// KeepConnection dials url and redials whenever the connection drops, until
// ctx is cancelled.
func (rc *ReConn) KeepConnection(ctx context.Context, url string) {
	for ctx.Err() == nil {
		c := NewConn(rc.l, make(chan []byte, inputQueueLen))
		if err := c.Connect(ctx, url); err != nil {
			rc.l.WithError(err).With(log.F{"url": url}).Warn("error connecting")
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
			continue
		}

		rc.lock.Lock()
		rc.c = append(rc.c, c)
		rc.lock.Unlock()

		select {
		case <-c.Done:
		case <-ctx.Done():
			c.Close()
		}

		rc.lock.Lock()
		for i, cc := range rc.c {
			if cc == c {
				rc.c = append(rc.c[:i:i], rc.c[i+1:]...)
				break
			}
		}
		rc.lock.Unlock()
	}
}

func (rc *ReConn) Next() (*Conn, uint32) {
	rc.lock.RLock()
	defer rc.lock.RUnlock()

	if len(rc.c) == 0 {
		return nil, 0
	}
	n := rc.next.Inc()
	return rc.c[(int(n)-1)%len(rc.c)], n
}

func (rc *ReConn) Get() (*Conn, uint32, error) {
	c, n := rc.Next()
	if c == nil || !c.Healthy() {
		return nil, 0, client.ErrConnectionFailure
	}
	return c, n, nil
}

func (rc *ReConn) TryOtherThan(n uint32) (*Conn, error) {
	rc.lock.RLock()
	defer rc.lock.RUnlock()

	l := uint32(len(rc.c))
	if l < 2 {
		return nil, client.ErrConnectionFailure
	}

	c := rc.c[n%l]
	if c == nil || !c.Healthy() {
		return nil, client.ErrConnectionFailure
	}
	return c, nil
}

func concatBytes(id int64, method string, params []byte) []byte {
	b := bytes.NewBuffer(nil)
	fmt.Fprintf(b, `{"jsonrpc":"2.0","id":%d,"method":%q,"params":`, id, method)
	b.Write(params)
	b.WriteString(`}`)
	return b.Bytes()
}

type RespCache struct {
	c map[int64]chan structs.Response
	l sync.Mutex
	p sync.Pool
}

func NewRespCache() *RespCache {
	return &RespCache{
		c: make(map[int64]chan structs.Response),
		p: sync.Pool{
			New: func() any {
				return make(chan structs.Response, 1)
			},
		},
	}
}

func (rc *RespCache) PoolGet() (ch chan structs.Response) {
	return rc.p.Get().(chan structs.Response)
}

func (rc *RespCache) PoolPut(ch chan structs.Response) {
	// drain a response that raced with cancellation
	select {
	case <-ch:
	default:
	}
	rc.p.Put(ch)
}

func (rc *RespCache) Set(id int64, ch chan structs.Response) {
	rc.l.Lock()
	defer rc.l.Unlock()
	rc.c[id] = ch
}

func (rc *RespCache) Del(id int64) {
	rc.l.Lock()
	defer rc.l.Unlock()
	delete(rc.c, id)
}

func (rc *RespCache) Get(id int64) (ch chan structs.Response, ok bool) {
	rc.l.Lock()
	defer rc.l.Unlock()
	ch, ok = rc.c[id]
	if ok {
		delete(rc.c, id)
	}
	return ch, ok
}

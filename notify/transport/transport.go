package transport

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Encoding prefixes every frame as a uvarint so that decoders can reject
// payloads they do not understand.
type Encoding uint64

const (
	Unknown Encoding = iota
	TransactionReadyJSON
)

var ErrDecodeVarint = errors.New("error decoding varint value")

type Message struct {
	Source   uuid.UUID `json:"source"`
	Encoding Encoding  `json:"encoding"`
	Payload  []byte    `json:"payload"`
}

func (m Message) Loggable() map[string]any {
	return map[string]any{
		"source":   m.Source.String(),
		"encoding": uint64(m.Encoding),
		"size":     len(m.Payload),
	}
}

func Encode(m Message) ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}

	prefix := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(prefix, uint64(m.Encoding))

	return append(prefix[:n], raw...), nil
}

func Decode(b []byte) (Message, error) {
	varint, n := binary.Uvarint(b)
	if n <= 0 {
		return Message{}, ErrDecodeVarint
	}

	switch Encoding(varint) {
	case TransactionReadyJSON:
		var msg Message
		if err := json.Unmarshal(b[n:], &msg); err != nil {
			return Message{}, err
		}
		return msg, nil
	default:
		return Message{}, fmt.Errorf("invalid encoding: %d", varint)
	}
}

package transport

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/visiona/framecast/internal/codec"
)

// maxMessageSize caps a single wire message. A 2K RGB frame with a depth
// plane is ~22 MB raw; anything past this is a corrupt stream.
const maxMessageSize = 64 << 20

// writeMessage frames an envelope as 4-byte big-endian length + msgpack body.
func writeMessage(w io.Writer, env *codec.Envelope) error {
	body, err := env.Marshal()
	if err != nil {
		return err
	}
	if len(body) > maxMessageSize {
		return fmt.Errorf("transport: message of %d bytes exceeds limit", len(body))
	}

	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(body)))

	if _, err := w.Write(prefix[:]); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

// readMessage reads one length-prefixed envelope.
func readMessage(r io.Reader) (*codec.Envelope, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}

	size := binary.BigEndian.Uint32(prefix[:])
	if size == 0 || size > maxMessageSize {
		return nil, fmt.Errorf("transport: invalid message size %d", size)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}

	return codec.UnmarshalEnvelope(body)
}

package rcon

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Packet type codes used by the console protocol. The same code (2) is used
// for command requests and for the server's auth response, matching the
// deployed wire protocol.
const (
	TypeResponse     int32 = 0
	TypeCommand      int32 = 2
	TypeAuthResponse int32 = 2
	TypeAuth         int32 = 3
)

// minPayloadSize is the smallest legal payload: request id (4) + type (4) +
// empty body + two trailing null bytes.
const minPayloadSize = 10

// AuthFailureID is the request id the server echoes back when authentication
// is rejected.
const AuthFailureID int32 = -1

// Packet is a single console-protocol frame. On the wire it is encoded as a
// 4-byte little-endian length prefix followed by the payload:
// {int32 id, int32 type, UTF-8 body, 0x00, 0x00}.
type Packet struct {
	ID   int32
	Type int32
	Body string
}

// Encode serializes the packet including its length prefix.
func (p *Packet) Encode() []byte {
	body := []byte(p.Body)
	length := int32(len(body) + minPayloadSize)

	buf := bytes.NewBuffer(make([]byte, 0, length+4))
	binary.Write(buf, binary.LittleEndian, length)
	binary.Write(buf, binary.LittleEndian, p.ID)
	binary.Write(buf, binary.LittleEndian, p.Type)
	buf.Write(body)
	buf.Write([]byte{0x00, 0x00})

	return buf.Bytes()
}

// WritePacket encodes and writes a single packet to w.
func WritePacket(w io.Writer, p *Packet) error {
	data := p.Encode()
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write packet: %w", err)
	}
	return nil
}

// ReadPacket reads exactly one packet from r. A short or failed read of the
// length prefix, or a payload shorter than its declared length, is reported
// as io.EOF so callers treat it as end-of-stream rather than a protocol
// violation. A declared length below the fixed header overhead is malformed.
func ReadPacket(r io.Reader) (*Packet, error) {
	var length int32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, io.EOF
	}

	if length < minPayloadSize {
		return nil, fmt.Errorf("malformed packet: declared length %d below minimum %d", length, minPayloadSize)
	}

	// A single read is not assumed to return the full payload; ReadFull
	// loops until length bytes are consumed.
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, io.EOF
	}

	p := &Packet{
		ID:   int32(binary.LittleEndian.Uint32(payload[0:4])),
		Type: int32(binary.LittleEndian.Uint32(payload[4:8])),
	}
	// Strip the two trailing null bytes.
	p.Body = string(payload[8 : length-2])

	return p, nil
}

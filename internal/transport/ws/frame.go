package ws

import (
	"encoding/binary"
	"fmt"
)

// Frame is one unit of the streaming wire protocol. Frames belonging to one
// logical response share a request id and carry a monotonically increasing
// sequence starting at 1; the final frame has Final set and an empty payload.
//
// Header layout (16 bytes, big-endian):
//
//	bytes 0-3   request id
//	bytes 4-7   sequence number
//	byte  8     flags (bit 0 = final)
//	bytes 9-11  reserved, must be zero
//	bytes 12-15 payload length
type Frame struct {
	RequestID uint32
	Sequence  uint32
	Final     bool
	Payload   []byte
}

const (
	headerLength        = 16
	offsetRequestID     = 0
	offsetSequence      = 4
	offsetFlags         = 8
	offsetPayloadLength = 12

	flagFinal = 0x01
)

// EncodeFrame serializes the frame header and payload into one buffer.
func EncodeFrame(f Frame) []byte {
	buf := make([]byte, headerLength+len(f.Payload))
	binary.BigEndian.PutUint32(buf[offsetRequestID:], f.RequestID)
	binary.BigEndian.PutUint32(buf[offsetSequence:], f.Sequence)
	if f.Final {
		buf[offsetFlags] = flagFinal
	}
	binary.BigEndian.PutUint32(buf[offsetPayloadLength:], uint32(len(f.Payload)))
	copy(buf[headerLength:], f.Payload)
	return buf
}

// DecodeFrame parses one encoded frame. The reserved header bytes must be
// zero and the declared payload length must match the data actually present.
func DecodeFrame(data []byte) (Frame, error) {
	if len(data) < headerLength {
		return Frame{}, fmt.Errorf("frame too short: %d bytes", len(data))
	}
	if data[offsetFlags+1] != 0 || data[offsetFlags+2] != 0 || data[offsetFlags+3] != 0 {
		return Frame{}, fmt.Errorf("frame reserved bytes are not zero")
	}

	payloadLen := binary.BigEndian.Uint32(data[offsetPayloadLength:])
	if int(payloadLen) != len(data)-headerLength {
		return Frame{}, fmt.Errorf("frame payload length mismatch: header says %d, got %d",
			payloadLen, len(data)-headerLength)
	}

	f := Frame{
		RequestID: binary.BigEndian.Uint32(data[offsetRequestID:]),
		Sequence:  binary.BigEndian.Uint32(data[offsetSequence:]),
		Final:     data[offsetFlags]&flagFinal != 0,
	}
	if payloadLen > 0 {
		f.Payload = make([]byte, payloadLen)
		copy(f.Payload, data[headerLength:])
	}
	return f, nil
}

package network

import (
	"encoding/binary"
	"fmt"
)

const (
	Magic       = 0x0E
	HeaderSize  = 10
	PayloadSize = 11
	CRCSize     = 2
	FrameLength = HeaderSize + PayloadSize // value of the length field of a DATA frame
	WireSize    = FrameLength + CRCSize
	NodeAddress = 0x3E8

	// StatusTimeTag is sent in every status frame, requesters ignore it.
	StatusTimeTag = 0x0A
)

// Class byte: bits 7-6 are the operation, bits 5-0 the message type.
const (
	opPlain = 0x00
	opNak   = 0x80
	opAck   = 0xC0
	opMask  = 0xC0

	msgCtrl = 0x01
	msgData = 0x02
	msgMask = 0x3F

	ClassData = opPlain | msgData
	ClassAck  = opAck | msgCtrl
	ClassNak  = opNak | msgCtrl
)

type Header struct {
	Magic  uint8
	Tx     uint16
	Rx     uint16
	Class  uint8
	MsgID  uint16
	Length uint16
}

type Payload struct {
	TimeTag   uint64
	Command   uint8
	Floor     uint8
	Direction uint8
}

func (h Header) String() string {
	return fmt.Sprintf("{magic=0x%02x tx=0x%04x rx=0x%04x class=0x%02x id=%d len=%d}",
		h.Magic, h.Tx, h.Rx, h.Class, h.MsgID, h.Length)
}

func (h Header) IsAck() bool { return h.Class&opMask == opAck }

func (h Header) IsNak() bool { return h.Class&opMask == opNak }

func (h Header) IsData() bool { return h.Class == ClassData }

func parseHeader(b []byte) Header {
	return Header{
		Magic:  b[0],
		Tx:     binary.BigEndian.Uint16(b[1:3]),
		Rx:     binary.BigEndian.Uint16(b[3:5]),
		Class:  b[5],
		MsgID:  binary.BigEndian.Uint16(b[6:8]),
		Length: binary.BigEndian.Uint16(b[8:10]),
	}
}

func appendHeader(b []byte, h Header) []byte {
	b = append(b, h.Magic)
	b = binary.BigEndian.AppendUint16(b, h.Tx)
	b = binary.BigEndian.AppendUint16(b, h.Rx)
	b = append(b, h.Class)
	b = binary.BigEndian.AppendUint16(b, h.MsgID)
	return binary.BigEndian.AppendUint16(b, h.Length)
}

func parsePayload(b []byte) Payload {
	return Payload{
		TimeTag:   binary.BigEndian.Uint64(b[0:8]),
		Command:   b[8],
		Floor:     b[9],
		Direction: b[10],
	}
}

func appendPayload(b []byte, p Payload) []byte {
	b = binary.BigEndian.AppendUint64(b, p.TimeTag)
	return append(b, p.Command, p.Floor, p.Direction)
}

// dataFrame returns header, payload and CRC as sent on the wire.
func dataFrame(h Header, p Payload) []byte {
	b := make([]byte, 0, WireSize)
	b = appendHeader(b, h)
	b = appendPayload(b, p)
	return binary.BigEndian.AppendUint16(b, CRC16(b))
}

// replyFrame answers in: addresses swapped, same message id, header only.
func replyFrame(in Header, class uint8) []byte {
	return appendHeader(make([]byte, 0, HeaderSize), Header{
		Magic:  Magic,
		Tx:     in.Rx,
		Rx:     in.Tx,
		Class:  class,
		MsgID:  in.MsgID,
		Length: HeaderSize,
	})
}

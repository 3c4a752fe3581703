package network

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"liftctl/src/types"
)

// Decode validates one inbound frame and answers it on w.
//   - a malformed frame gets a NAK and an error wrapping ErrProtocol
//   - a valid frame gets an ACK and is returned as a Request
//
// Exactly one reply is written per call. The trailing CRC is not checked.
func Decode(w io.Writer, frame []byte) (types.Request, error) {
	if len(frame) < HeaderSize {
		_, werr := w.Write(replyFrame(Header{}, ClassNak))
		return types.Request{}, errors.Join(
			fmt.Errorf("%w: %d bytes, header needs %d", ErrShortFrame, len(frame), HeaderSize), werr)
	}

	h := parseHeader(frame)
	var errs []error
	if h.Magic != Magic {
		errs = append(errs, fmt.Errorf("%w 0x%02x", ErrBadMagic, h.Magic))
	}
	if h.Length != FrameLength {
		errs = append(errs, fmt.Errorf("%w %d, want %d", ErrBadLength, h.Length, FrameLength))
	}
	if !h.IsData() {
		errs = append(errs, fmt.Errorf("%w 0x%02x", ErrBadClass, h.Class))
	}
	if len(frame) < FrameLength {
		errs = append(errs, fmt.Errorf("%w: %d bytes, want %d", ErrShortFrame, len(frame), FrameLength))
	}
	if len(errs) > 0 {
		if _, err := w.Write(replyFrame(h, ClassNak)); err != nil {
			errs = append(errs, fmt.Errorf("send nak: %w", err))
		}
		return types.Request{}, errors.Join(errs...)
	}

	if _, err := w.Write(replyFrame(h, ClassAck)); err != nil {
		return types.Request{}, fmt.Errorf("send ack: %w", err)
	}

	p := parsePayload(frame[HeaderSize:FrameLength])
	return types.Request{
		Node:          h.Tx,
		CorrelationID: h.MsgID,
		Timestamp:     types.NowMillis(),
		TimeTag:       p.TimeTag,
		Command:       types.Command(p.Command),
		Floor:         p.Floor,
		Direction:     types.Direction(p.Direction),
		Valid:         true,
	}, nil
}

// EncodeStatus builds the DATA frame reporting s to its requester.
func EncodeStatus(node uint16, s types.Status) []byte {
	return dataFrame(
		Header{Magic: Magic, Tx: node, Rx: s.Node, Class: ClassData, MsgID: s.CorrelationID, Length: FrameLength},
		Payload{TimeTag: StatusTimeTag, Command: uint8(s.Code), Floor: s.Floor, Direction: uint8(s.Motion)},
	)
}

// RequestFrame is what a requester puts on the wire.
type RequestFrame struct {
	Tx        uint16
	Rx        uint16
	MsgID     uint16
	TimeTag   uint64
	Command   types.Command
	Floor     uint8
	Direction types.Direction
}

func EncodeRequest(f RequestFrame) []byte {
	return dataFrame(
		Header{Magic: Magic, Tx: f.Tx, Rx: f.Rx, Class: ClassData, MsgID: f.MsgID, Length: FrameLength},
		Payload{TimeTag: f.TimeTag, Command: uint8(f.Command), Floor: f.Floor, Direction: uint8(f.Direction)},
	)
}

// Reply is a frame read by a requester: an ACK, a NAK or a status DATA frame.
type Reply struct {
	Header Header
	Status types.Status // DATA frames only
}

// ReadFrame reads one frame from a controller connection.
// DATA frames must carry a full payload and a valid CRC.
func ReadFrame(r *bufio.Reader) (Reply, error) {
	raw := make([]byte, HeaderSize, WireSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		return Reply{}, err
	}
	h := parseHeader(raw)
	if h.Magic != Magic {
		return Reply{Header: h}, fmt.Errorf("%w 0x%02x", ErrBadMagic, h.Magic)
	}
	if !h.IsData() {
		if h.Length != HeaderSize {
			return Reply{Header: h}, fmt.Errorf("%w %d for a reply", ErrBadLength, h.Length)
		}
		return Reply{Header: h}, nil
	}
	if h.Length != FrameLength {
		return Reply{Header: h}, fmt.Errorf("%w %d, want %d", ErrBadLength, h.Length, FrameLength)
	}

	raw = raw[:WireSize]
	if _, err := io.ReadFull(r, raw[HeaderSize:]); err != nil {
		return Reply{Header: h}, err
	}
	want := binary.BigEndian.Uint16(raw[FrameLength:])
	if got := CRC16(raw[:FrameLength]); got != want {
		return Reply{Header: h}, fmt.Errorf("%w: got 0x%04x, frame says 0x%04x", ErrChecksum, got, want)
	}
	p := parsePayload(raw[HeaderSize:FrameLength])
	return Reply{
		Header: h,
		Status: types.Status{
			Node:          h.Rx,
			CorrelationID: h.MsgID,
			Code:          types.StatusCode(p.Command),
			Floor:         p.Floor,
			Motion:        types.Motion(p.Direction),
		},
	}, nil
}

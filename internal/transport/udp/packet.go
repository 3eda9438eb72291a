// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"tuner/internal/tuning"
)

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Frequency         | float32        | 4            | Raw estimate, Hz        |
| Note Number       | int16          | 2            | Displayed note (A4=69)  |
| Cents             | float32        | 4            | Positive when sharp     |
| Needle Angle      | float32        | 4            | Smoothed, degrees       |
| Flags             | uint8          | 1            | Bit 0 in tune,          |
|                   |                |              | bit 1 sustained         |
| Name Length       | uint8          | 1            | Length of Name (N)      |
| Name              | []byte         | N            | Note name, e.g. "C#"    |
+-----------------------------------------------------------------------------+
*/

const (
	headerSize = 4 + 8 + 4 + 2 + 4 + 4 + 1 + 1

	FlagInTune    uint8 = 1 << 0
	FlagSustained uint8 = 1 << 1
)

// ErrShortPacket is returned when a packet is smaller than its header says.
var ErrShortPacket = errors.New("udp: short packet")

// Packet is the decoded form of one datagram.
type Packet struct {
	Sequence    uint32
	Timestamp   time.Time
	Frequency   float32
	NoteNumber  int16
	Cents       float32
	NeedleAngle float32
	Flags       uint8
	Name        string
}

// InTune reports whether FlagInTune is set.
func (p Packet) InTune() bool { return p.Flags&FlagInTune != 0 }

// Sustained reports whether FlagSustained is set.
func (p Packet) Sustained() bool { return p.Flags&FlagSustained != 0 }

// AppendPacket encodes r as sequence seq onto dst.
func AppendPacket(dst []byte, seq uint32, at time.Time, r tuning.Reading) []byte {
	name := r.NoteName
	if len(name) > math.MaxUint8 {
		name = name[:math.MaxUint8]
	}

	var flags uint8
	if r.InTune {
		flags |= FlagInTune
	}
	if r.Sustained {
		flags |= FlagSustained
	}

	dst = binary.BigEndian.AppendUint32(dst, seq)
	dst = binary.BigEndian.AppendUint64(dst, uint64(at.UnixNano()))
	dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(float32(r.Frequency)))
	dst = binary.BigEndian.AppendUint16(dst, uint16(int16(r.NoteNumber)))
	dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(float32(r.Cents)))
	dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(float32(r.NeedleAngle)))
	dst = append(dst, flags, uint8(len(name)))
	return append(dst, name...)
}

// ParsePacket decodes one datagram.
func ParsePacket(b []byte) (Packet, error) {
	if len(b) < headerSize {
		return Packet{}, fmt.Errorf("%w: %d bytes, header needs %d", ErrShortPacket, len(b), headerSize)
	}

	p := Packet{
		Sequence:    binary.BigEndian.Uint32(b[0:]),
		Timestamp:   time.Unix(0, int64(binary.BigEndian.Uint64(b[4:]))),
		Frequency:   math.Float32frombits(binary.BigEndian.Uint32(b[12:])),
		NoteNumber:  int16(binary.BigEndian.Uint16(b[16:])),
		Cents:       math.Float32frombits(binary.BigEndian.Uint32(b[18:])),
		NeedleAngle: math.Float32frombits(binary.BigEndian.Uint32(b[22:])),
		Flags:       b[26],
	}

	n := int(b[27])
	if len(b) < headerSize+n {
		return Packet{}, fmt.Errorf("%w: name of %d bytes truncated", ErrShortPacket, n)
	}
	p.Name = string(b[headerSize : headerSize+n])

	return p, nil
}

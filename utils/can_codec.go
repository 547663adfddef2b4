package utils

import (
	"math"

	"github.com/pkg/errors"
	"go.einride.tech/can"
)

func bitMask(bitLen int) uint64 {
	return ^uint64(0) >> (64 - bitLen)
}

func extractBits(payload uint64, startBit, bitLen int) uint64 {
	if bitLen <= 0 || bitLen > 64 {
		return 0
	}
	return (payload >> startBit) & bitMask(bitLen)
}

func insertBits(payload uint64, startBit, bitLen int, value uint64) uint64 {
	if bitLen <= 0 || bitLen > 64 {
		return payload
	}
	mask := bitMask(bitLen)
	payload &^= mask << startBit
	return payload | (value&mask)<<startBit
}

// signExtend interprets the low bitLen bits of u as two's complement.
func signExtend(u uint64, bitLen int, signed bool) int64 {
	if !signed || bitLen >= 64 {
		return int64(u)
	}
	if u&(uint64(1)<<(bitLen-1)) == 0 {
		return int64(u)
	}
	return int64(u | ^bitMask(bitLen))
}

func rawRange(bitLen int, signed bool) (int64, int64) {
	if bitLen >= 63 {
		return math.MinInt64, math.MaxInt64
	}
	if !signed {
		return 0, int64(1)<<bitLen - 1
	}
	return -(int64(1) << (bitLen - 1)), int64(1)<<(bitLen-1) - 1
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (s SignalDef) encode(v float64) uint64 {
	if s.Max > s.Min {
		v = clamp(v, s.Min, s.Max)
	}
	raw := int64(math.Round((v - s.Offset) / s.Factor))
	lo, hi := rawRange(s.BitLength, s.Signed)
	if raw < lo {
		raw = lo
	} else if raw > hi {
		raw = hi
	}
	return uint64(raw) & bitMask(s.BitLength)
}

func (s SignalDef) decode(payload uint64) float64 {
	raw := signExtend(extractBits(payload, s.StartBit, s.BitLength), s.BitLength, s.Signed)
	return float64(raw)*s.Factor + s.Offset
}

// EncodeFrame packs physical values into a frame ready to transmit.
// Signals missing from values take their default.
func (m *CANMap) EncodeFrame(frameName string, values map[string]float64) (can.Frame, error) {
	fd, err := m.FrameByName(frameName)
	if err != nil {
		return can.Frame{}, err
	}

	var payload uint64
	for _, s := range fd.Signals {
		v, ok := values[s.Name]
		if !ok {
			v = s.Default
		}
		payload = insertBits(payload, s.StartBit, s.BitLength, s.encode(v))
	}

	f := can.Frame{ID: fd.ID, Length: uint8(fd.DLC)}
	for i := 0; i < fd.DLC; i++ {
		f.Data[i] = byte(payload >> (8 * i))
	}
	return f, nil
}

// DecodeFrame unpacks every signal of a known frame into physical units.
func (m *CANMap) DecodeFrame(frame can.Frame) (*FrameDef, map[string]float64, error) {
	fd, err := m.FrameByID(frame.ID)
	if err != nil {
		return nil, nil, err
	}
	if int(frame.Length) < fd.DLC {
		return nil, nil, errors.Errorf("frame %s (0x%X) expects DLC %d, got %d", fd.Name, fd.ID, fd.DLC, frame.Length)
	}

	var payload uint64
	for i := 0; i < fd.DLC; i++ {
		payload |= uint64(frame.Data[i]) << (8 * i)
	}

	out := make(map[string]float64, len(fd.Signals))
	for _, s := range fd.Signals {
		out[s.Name] = s.decode(payload)
	}
	return fd, out, nil
}

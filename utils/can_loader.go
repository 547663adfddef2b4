package utils

import (
	"encoding/csv"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// SignalDef is one little-endian field of a CAN payload with its scaling to
// physical units.
type SignalDef struct {
	Name       string
	StartBit   int
	BitLength  int
	Signed     bool
	Factor     float64
	Offset     float64
	Min        float64 // clamp on encode when Max > Min
	Max        float64
	Default    float64 // sent when no value is given
	Unit       string
	Comment    string
	Endianness string
}

// FrameDef is every signal carried under one identifier.
type FrameDef struct {
	ID        uint32
	Name      string
	DLC       int
	Direction string // "rx" into the core, "tx" out of it
	CycleMS   int
	Signals   []SignalDef // ordered by StartBit
}

func (fd *FrameDef) HasSignal(name string) bool {
	return slices.ContainsFunc(fd.Signals, func(s SignalDef) bool { return s.Name == name })
}

// CANMap indexes the frame definitions both ways.
type CANMap struct {
	ByID   map[uint32]*FrameDef
	ByName map[string]*FrameDef
}

func (m *CANMap) FrameNames() []string {
	names := slices.Collect(maps.Keys(m.ByName))
	slices.Sort(names)
	return names
}

var requiredColumns = []string{
	"direction", "frame_id", "frame_name", "cycle_ms", "dlc",
	"signal_name", "start_bit", "bit_length", "endianness",
	"signed", "factor", "offset", "min", "max", "default", "unit", "comment",
}

func LoadCANMap(csvPath string) (*CANMap, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, errors.Wrap(err, "open can map")
	}
	defer f.Close()

	m, err := ReadCANMap(f)
	if err != nil {
		return nil, errors.Wrapf(err, "can map %s", csvPath)
	}
	return m, nil
}

// ReadCANMap parses the one-row-per-signal CSV layout.
func ReadCANMap(src io.Reader) (*CANMap, error) {
	r := csv.NewReader(src)
	r.TrimLeadingSpace = true
	r.Comment = '#'

	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, k := range requiredColumns {
		if _, ok := idx[k]; !ok {
			return nil, errors.Errorf("missing required column %q", k)
		}
	}
	col := func(rec []string, name string) string {
		return strings.TrimSpace(rec[idx[name]])
	}

	m := &CANMap{
		ByID:   map[uint32]*FrameDef{},
		ByName: map[string]*FrameDef{},
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		frameID, err := parseHexOrDecUint32(col(rec, "frame_id"))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid frame_id %q", col(rec, "frame_id"))
		}

		frameName := col(rec, "frame_name")
		dlc := mustInt(col(rec, "dlc"))

		sig := SignalDef{
			Name:       col(rec, "signal_name"),
			StartBit:   mustInt(col(rec, "start_bit")),
			BitLength:  mustInt(col(rec, "bit_length")),
			Endianness: col(rec, "endianness"),
			Signed:     mustBool(col(rec, "signed")),
			Factor:     mustFloat(col(rec, "factor")),
			Offset:     mustFloat(col(rec, "offset")),
			Min:        mustFloat(col(rec, "min")),
			Max:        mustFloat(col(rec, "max")),
			Default:    mustFloat(col(rec, "default")),
			Unit:       col(rec, "unit"),
			Comment:    col(rec, "comment"),
		}

		if sig.Endianness != "" && sig.Endianness != "little" {
			return nil, errors.Errorf("frame %s signal %s: unsupported endianness %q (only little supported)",
				frameName, sig.Name, sig.Endianness)
		}
		if dlc <= 0 || dlc > 8 {
			return nil, errors.Errorf("frame %s (0x%X): invalid dlc %d", frameName, frameID, dlc)
		}
		if sig.BitLength <= 0 || sig.StartBit < 0 || sig.StartBit+sig.BitLength > dlc*8 {
			return nil, errors.Errorf("frame %s signal %s: bits [%d,%d) do not fit dlc %d",
				frameName, sig.Name, sig.StartBit, sig.StartBit+sig.BitLength, dlc)
		}
		if sig.Factor == 0 {
			return nil, errors.Errorf("frame %s signal %s: factor must be non-zero", frameName, sig.Name)
		}

		fd, ok := m.ByID[frameID]
		if !ok {
			fd = &FrameDef{
				ID:        frameID,
				Name:      frameName,
				DLC:       dlc,
				Direction: col(rec, "direction"),
				CycleMS:   mustInt(col(rec, "cycle_ms")),
			}
			m.ByID[frameID] = fd
			m.ByName[frameName] = fd
		}
		if fd.DLC != dlc {
			return nil, errors.Errorf("frame %s (0x%X) has inconsistent DLC (%d vs %d)", frameName, frameID, fd.DLC, dlc)
		}

		fd.Signals = append(fd.Signals, sig)
	}

	for _, fd := range m.ByID {
		slices.SortFunc(fd.Signals, func(a, b SignalDef) int { return a.StartBit - b.StartBit })
	}

	return m, nil
}

func (m *CANMap) FrameByName(name string) (*FrameDef, error) {
	fd, ok := m.ByName[name]
	if !ok {
		return nil, errors.Errorf("unknown frame %q (available: %v)", name, m.FrameNames())
	}
	return fd, nil
}

func (m *CANMap) FrameByID(id uint32) (*FrameDef, error) {
	fd, ok := m.ByID[id]
	if !ok {
		return nil, errors.Errorf("unknown frame id 0x%X", id)
	}
	return fd, nil
}

func parseHexOrDecUint32(s string) (uint32, error) {
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		s = s[2:]
	}
	u, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, err
	}
	return uint32(u), nil
}

func mustInt(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func mustFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func mustBool(s string) bool {
	ss := strings.ToLower(s)
	return ss == "true" || ss == "1" || ss == "yes"
}

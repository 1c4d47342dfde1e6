package ob6

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dgryski/go-bitstream"
)

const (
	SysexStart = 0xF0
	SysexEnd   = 0xF7
)

// VendorDSI is the Sequential/DSI manufacturer id. Every instrument in this
// driver family shares it; the model byte distinguishes the instrument.
const VendorDSI = 0x01

// Command codes, third byte of the sysex data after vendor and model.
const (
	CmdProgramDump    = 0x02
	CmdEditBufferDump = 0x03
	CmdGlobalsRequest = 0x0e
	CmdGlobalsDump    = 0x0f
)

// Escape packs native 8-bit data into the 7-bit-safe transport form: every
// byte is split into its two nibbles and each nibble is sent as one
// transport byte, high nibble first. Output is exactly twice the input
// length and the function is total over all inputs.
func Escape(data []byte) []byte {
	buf := bytes.NewBuffer(nil)
	reader := bitstream.NewReader(bytes.NewReader(data))
	writer := bitstream.NewWriter(buf)

	for {
		nibble, err := reader.ReadBits(4)
		if err == io.EOF {
			break
		}
		if err != nil {
			panic(fmt.Sprintf("reading nibble: %v", err))
		}
		if err := writer.WriteBits(nibble, 8); err != nil {
			panic(fmt.Sprintf("writing transport byte: %v", err))
		}
	}

	return buf.Bytes()
}

// Unescape reverses Escape: transport bytes are consumed in pairs and each
// pair recombines into one output byte. Reading stops after expected output
// bytes or when the input runs out, whichever comes first, so a short or
// odd-length input yields a truncated result instead of an error. Callers
// building fixed-length records must check the returned length.
func Unescape(transport []byte, expected int) []byte {
	out := make([]byte, 0, expected)
	reader := bitstream.NewReader(bytes.NewReader(transport))

	for len(out) < expected {
		hi, err := reader.ReadBits(8)
		if err != nil {
			break
		}
		lo, err := reader.ReadBits(8)
		if err != nil {
			break
		}
		out = append(out, (byte(hi)&0x0F)<<4|byte(lo)&0x0F)
	}

	return out
}

// StripFrame drops the leading F0 and trailing F7 if present, leaving the
// vendor byte first.
func StripFrame(raw []byte) []byte {
	if len(raw) > 0 && raw[0] == SysexStart {
		raw = raw[1:]
	}
	if len(raw) > 0 && raw[len(raw)-1] == SysexEnd {
		raw = raw[:len(raw)-1]
	}
	return raw
}

type MessageKind int

const (
	// KindUnknown covers messages with our vendor and model bytes but an
	// unrecognized or malformed remainder. Not an error, just skipped.
	KindUnknown MessageKind = iota
	// KindForeign covers messages for some other vendor or instrument.
	KindForeign
	KindProgramDump
	KindEditBufferDump
	KindGlobalsRequest
	KindGlobalsDump
)

func (k MessageKind) String() string {
	switch k {
	case KindForeign:
		return "foreign"
	case KindProgramDump:
		return "program data dump"
	case KindEditBufferDump:
		return "edit buffer dump"
	case KindGlobalsRequest:
		return "global settings request"
	case KindGlobalsDump:
		return "global settings dump"
	}
	return "unknown"
}

// Classification is the result of header inspection. Payload holds the
// still-escaped bytes after the header (raw bytes for a globals dump, which
// the device sends unescaped). Slot is bank*patches-per-bank+program for
// program dumps and EditBuffer otherwise.
type Classification struct {
	Kind    MessageKind
	Bank    int
	Program int
	Slot    int
	Payload []byte
}

// Classify identifies the message subtype from header bytes alone. It is a
// pure function: no driver state is read or written. Frames may arrive with
// or without the F0/F7 wrapper.
func Classify(raw []byte, cfg *ModelConfig) Classification {
	data := StripFrame(raw)

	if len(data) == 0 {
		return Classification{Kind: KindUnknown, Slot: EditBuffer}
	}
	if data[0] != cfg.VendorID {
		return Classification{Kind: KindForeign, Slot: EditBuffer}
	}
	if len(data) < 2 || data[1] != cfg.ModelID {
		return Classification{Kind: KindForeign, Slot: EditBuffer}
	}
	if len(data) < 3 {
		return Classification{Kind: KindUnknown, Slot: EditBuffer}
	}

	switch data[2] {
	case CmdProgramDump:
		if len(data) < 5 {
			return Classification{Kind: KindUnknown, Slot: EditBuffer}
		}
		bank := int(data[3])
		program := int(data[4])
		return Classification{
			Kind:    KindProgramDump,
			Bank:    bank,
			Program: program,
			Slot:    bank*cfg.PatchesPerBank + program,
			Payload: data[5:],
		}
	case CmdEditBufferDump:
		return Classification{Kind: KindEditBufferDump, Slot: EditBuffer, Payload: data[3:]}
	case CmdGlobalsRequest:
		return Classification{Kind: KindGlobalsRequest, Slot: EditBuffer}
	case CmdGlobalsDump:
		return Classification{Kind: KindGlobalsDump, Slot: EditBuffer, Payload: data[3:]}
	}

	return Classification{Kind: KindUnknown, Slot: EditBuffer}
}

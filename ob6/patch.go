package ob6

import (
	"errors"
	"fmt"
	"strings"
)

// EditBuffer is the slot of a patch captured from the edit buffer. Such a
// record has no program location until the host assigns one.
const EditBuffer = -1

// PatchRecord is one patch as an opaque fixed-length payload. The driver
// never interprets voice parameters; it only knows the name zone and the
// slot arithmetic.
type PatchRecord struct {
	Payload []byte
	Slot    int
}

func (r *PatchRecord) isRecord() {}

func (r *PatchRecord) IsEditBuffer() bool { return r.Slot < 0 }

// BlankOut returns a copy of data with every zone zeroed. The host runs the
// result through its content fingerprint so renamed patches hash alike.
// Zones are clipped to the data length; zeroing is idempotent.
func BlankOut(zones []Zone, data []byte) []byte {
	out := append([]byte(nil), data...)
	for _, z := range zones {
		for i := z.Start; i < z.End && i < len(out); i++ {
			out[i] = 0
		}
	}
	return out
}

// PatchName reads the display name out of the name zone, trimming padding.
// The OB-6 stores names even though its own panel never shows them.
func (c *ModelConfig) PatchName(r *PatchRecord) string {
	z := c.NameZone
	if z.End > len(r.Payload) {
		return ""
	}
	return strings.TrimRight(string(r.Payload[z.Start:z.End]), " \x00")
}

// SetPatchName writes name into the name zone, truncating long names and
// padding short ones with spaces.
func (c *ModelConfig) SetPatchName(r *PatchRecord, name string) {
	z := c.NameZone
	if z.End > len(r.Payload) {
		return
	}
	for i := 0; i < z.End-z.Start; i++ {
		if i < len(name) {
			r.Payload[z.Start+i] = name[i]
		} else {
			r.Payload[z.Start+i] = ' '
		}
	}
}

func (c *ModelConfig) IsDefaultName(r *PatchRecord) bool {
	return c.PatchName(r) == c.DefaultName
}

// VoiceRelevantData is the payload with the name zone blanked, suitable for
// a voice-only fingerprint.
func (c *ModelConfig) VoiceRelevantData(r *PatchRecord) []byte {
	return BlankOut(c.BlankOutZones(), r.Payload)
}

func (c *ModelConfig) patchFromClassification(cl Classification) (*PatchRecord, error) {
	payload := Unescape(cl.Payload, c.PatchDataLength)
	if len(payload) < c.PatchDataLength {
		return nil, fmt.Errorf("ob6: patch payload %d of %d bytes: %w",
			len(payload), c.PatchDataLength, ErrIncompleteRecord)
	}
	return &PatchRecord{Payload: payload, Slot: cl.Slot}, nil
}

// PatchFromSysex builds a PatchRecord from a program data dump or edit
// buffer dump. Program dumps carry their slot; edit buffer dumps do not.
func (c *ModelConfig) PatchFromSysex(raw []byte) (*PatchRecord, error) {
	cl := Classify(raw, c)
	switch cl.Kind {
	case KindProgramDump, KindEditBufferDump:
		return c.patchFromClassification(cl)
	case KindForeign:
		return nil, ErrForeignMessage
	}
	return nil, fmt.Errorf("ob6: %s is not a patch dump", cl.Kind)
}

// EditBufferSysex frames a patch as an edit buffer dump, the "make it sound
// now" path that needs no slot.
func (c *ModelConfig) EditBufferSysex(r *PatchRecord) []byte {
	msg := []byte{SysexStart, c.VendorID, c.ModelID, CmdEditBufferDump}
	msg = append(msg, Escape(r.Payload)...)
	return append(msg, SysexEnd)
}

// EditBufferRequestSysex asks the device for its current edit buffer. The
// 0x03 command with no payload doubles as the request.
func (c *ModelConfig) EditBufferRequestSysex() []byte {
	return []byte{SysexStart, c.VendorID, c.ModelID, CmdEditBufferDump, SysexEnd}
}

// ProgramDumpSysex frames a patch as a program data dump stored at the
// record's slot.
func (c *ModelConfig) ProgramDumpSysex(r *PatchRecord) ([]byte, error) {
	if r.IsEditBuffer() {
		return nil, errors.New("ob6: patch has no program slot")
	}
	bank := c.BankOf(r.Slot)
	program := c.ProgramOf(r.Slot)
	if bank >= c.Banks {
		return nil, fmt.Errorf("ob6: slot %d is past bank %d", r.Slot, c.Banks-1)
	}
	msg := []byte{SysexStart, c.VendorID, c.ModelID, CmdProgramDump, byte(bank), byte(program)}
	msg = append(msg, Escape(r.Payload)...)
	return append(msg, SysexEnd), nil
}

// GlobalsRequestSysex asks the device to transmit its global settings. The
// same message opens the handshake in Driver.DetectRequest.
func (c *ModelConfig) GlobalsRequestSysex() []byte {
	return []byte{SysexStart, c.VendorID, c.ModelID, CmdGlobalsRequest, SysexEnd}
}

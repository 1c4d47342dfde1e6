package ob6

import (
	"bytes"
	"errors"
	"testing"
)

func TestProgramDumpRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	payload := testPatchPayload(t, cfg, 217)

	record := &PatchRecord{Payload: payload, Slot: 2*cfg.PatchesPerBank + 17}
	raw, err := cfg.ProgramDumpSysex(record)
	if err != nil {
		t.Fatalf("ProgramDumpSysex: %v", err)
	}

	cl := Classify(raw, cfg)
	if cl.Kind != KindProgramDump {
		t.Fatalf("classified as %s", cl.Kind)
	}
	if cl.Bank != 2 || cl.Program != 17 || cl.Slot != 217 {
		t.Fatalf("got bank %d program %d slot %d, want 2/17/217", cl.Bank, cl.Program, cl.Slot)
	}

	back, err := cfg.PatchFromSysex(raw)
	if err != nil {
		t.Fatalf("PatchFromSysex: %v", err)
	}
	if back.Slot != 217 {
		t.Errorf("slot %d, want 217", back.Slot)
	}
	if !bytes.Equal(back.Payload, payload) {
		t.Error("payload changed across the round trip")
	}
}

func TestEditBufferRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	payload := testPatchPayload(t, cfg, 3)

	raw := cfg.EditBufferSysex(&PatchRecord{Payload: payload, Slot: EditBuffer})
	back, err := cfg.PatchFromSysex(raw)
	if err != nil {
		t.Fatalf("PatchFromSysex: %v", err)
	}
	if !back.IsEditBuffer() {
		t.Errorf("edit buffer capture got slot %d", back.Slot)
	}
	if !bytes.Equal(back.Payload, payload) {
		t.Error("payload changed across the round trip")
	}
}

func TestPatchFromTruncatedDump(t *testing.T) {
	cfg := testConfig(t)
	payload := testPatchPayload(t, cfg, 4)

	raw := cfg.EditBufferSysex(&PatchRecord{Payload: payload, Slot: EditBuffer})
	_, err := cfg.PatchFromSysex(raw[:len(raw)/2])
	if !errors.Is(err, ErrIncompleteRecord) {
		t.Fatalf("expected ErrIncompleteRecord, got %v", err)
	}
}

func TestPatchFromForeignSysex(t *testing.T) {
	cfg := testConfig(t)
	_, err := cfg.PatchFromSysex([]byte{0xF0, 0x43, 0x00, 0x02, 0xF7})
	if !errors.Is(err, ErrForeignMessage) {
		t.Fatalf("expected ErrForeignMessage, got %v", err)
	}
}

func TestProgramDumpSlotValidation(t *testing.T) {
	cfg := testConfig(t)
	payload := testPatchPayload(t, cfg, 5)

	if _, err := cfg.ProgramDumpSysex(&PatchRecord{Payload: payload, Slot: EditBuffer}); err == nil {
		t.Error("edit buffer record framed as a program dump")
	}
	if _, err := cfg.ProgramDumpSysex(&PatchRecord{Payload: payload, Slot: 1000}); err == nil {
		t.Error("slot past the last bank framed as a program dump")
	}
}

func TestPatchNameStorage(t *testing.T) {
	cfg := testConfig(t)
	record := &PatchRecord{Payload: testPatchPayload(t, cfg, 6), Slot: EditBuffer}

	cfg.SetPatchName(record, "Brass Stab")
	if got := cfg.PatchName(record); got != "Brass Stab" {
		t.Errorf("read back %q", got)
	}

	// Long names truncate to the 20-character zone.
	cfg.SetPatchName(record, "A name much longer than the zone allows")
	if got := cfg.PatchName(record); got != "A name much longer t" {
		t.Errorf("read back %q", got)
	}

	cfg.SetPatchName(record, "Basic Program")
	if !cfg.IsDefaultName(record) {
		t.Error("default name not recognized")
	}
}

func TestBlankOutIdempotence(t *testing.T) {
	cfg := testConfig(t)
	payload := testPatchPayload(t, cfg, 7)

	once := BlankOut(cfg.BlankOutZones(), payload)
	twice := BlankOut(cfg.BlankOutZones(), once)
	if !bytes.Equal(once, twice) {
		t.Error("blanking twice differs from blanking once")
	}

	zone := cfg.NameZone
	for i := range payload {
		inZone := i >= zone.Start && i < zone.End
		if inZone && once[i] != 0 {
			t.Fatalf("byte %d inside the name zone survived", i)
		}
		if !inZone && once[i] != payload[i] {
			t.Fatalf("byte %d outside the name zone changed", i)
		}
	}
}

func TestVoiceRelevantDataIgnoresName(t *testing.T) {
	cfg := testConfig(t)
	a := &PatchRecord{Payload: testPatchPayload(t, cfg, 8), Slot: EditBuffer}
	b := &PatchRecord{Payload: append([]byte(nil), a.Payload...), Slot: EditBuffer}

	cfg.SetPatchName(a, "Init")
	cfg.SetPatchName(b, "Totally Different")

	if !bytes.Equal(cfg.VoiceRelevantData(a), cfg.VoiceRelevantData(b)) {
		t.Error("renaming changed the voice-relevant data")
	}
}

func TestFriendlyBankName(t *testing.T) {
	cfg := testConfig(t)
	if got := cfg.FriendlyBankName(0); got != "000 - 099" {
		t.Errorf("bank 0 named %q", got)
	}
	if got := cfg.FriendlyBankName(9); got != "900 - 999" {
		t.Errorf("bank 9 named %q", got)
	}
}

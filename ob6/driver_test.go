package ob6

import (
	"bytes"
	"errors"
	"testing"
)

func resolvedDriver(t *testing.T, channel byte) (*Driver, []byte) {
	t.Helper()
	cfg := testConfig(t)
	drv := NewDriver(cfg, nil)

	payload := defaultGlobalsPayload(t, cfg)
	payload[2] = channel // MIDI channel offset

	if _, err := drv.HandleMessage(globalsDumpSysex(cfg, payload)); err != nil {
		t.Fatalf("handshake: %v", err)
	}
	return drv, payload
}

func TestDetectRequestBytes(t *testing.T) {
	cfg := testConfig(t)
	drv := NewDriver(cfg, nil)

	want := []byte{0xF0, 0x01, OB6ModelID, 0x0E, 0xF7}
	if got := drv.DetectRequest(); !bytes.Equal(got, want) {
		t.Fatalf("detect request % X, want % X", got, want)
	}
	if drv.State() != AwaitingResponse {
		t.Error("detect request did not rewind the handshake")
	}
}

func TestHandshakeResolvesChannelAndFlags(t *testing.T) {
	drv, _ := resolvedDriver(t, 5)

	if drv.State() != ChannelResolved {
		t.Fatal("handshake did not resolve")
	}
	ch, err := drv.Channel()
	if err != nil {
		t.Fatal(err)
	}
	if ch != Channel(5) {
		t.Errorf("channel %v, want 5", ch)
	}
	if !drv.LocalControl() {
		t.Error("local control flag not cached")
	}
	if !drv.MIDIControl() {
		t.Error("MIDI control flag not cached")
	}
	if drv.Settings() == nil {
		t.Error("settings cache empty after handshake")
	}
}

func TestHandshakeOmniChannel(t *testing.T) {
	drv, _ := resolvedDriver(t, 0)
	ch, err := drv.Channel()
	if err != nil {
		t.Fatal(err)
	}
	if !ch.Omni() {
		t.Errorf("channel byte 0 resolved to %v, want omni", ch)
	}
}

func TestHandshakeInvalidChannelByte(t *testing.T) {
	cfg := testConfig(t)
	drv := NewDriver(cfg, nil)

	payload := defaultGlobalsPayload(t, cfg)
	payload[2] = 17

	_, err := drv.HandleMessage(globalsDumpSysex(cfg, payload))
	if !errors.Is(err, ErrInvalidDeviceResponse) {
		t.Fatalf("expected ErrInvalidDeviceResponse, got %v", err)
	}
	if drv.State() != AwaitingResponse {
		t.Error("invalid response must leave the handshake unresolved")
	}
	if _, err := drv.Channel(); !errors.Is(err, ErrChannelUnresolved) {
		t.Error("channel readable despite unresolved handshake")
	}
}

func TestHandshakeIgnoresForeignMessages(t *testing.T) {
	cfg := testConfig(t)
	drv := NewDriver(cfg, nil)

	rec, err := drv.HandleMessage([]byte{0xF0, 0x43, 0x00, 0x0F, 5, 0xF7})
	if rec != nil || err != nil {
		t.Fatalf("foreign message produced (%v, %v), want (nil, nil)", rec, err)
	}
	if drv.State() != AwaitingResponse {
		t.Error("foreign message advanced the handshake")
	}
}

func TestHandleMessageTruncatedGlobalsDump(t *testing.T) {
	cfg := testConfig(t)
	drv := NewDriver(cfg, nil)

	_, err := drv.HandleMessage(globalsDumpSysex(cfg, []byte{12, 50, 1}))
	if !errors.Is(err, ErrIncompleteRecord) {
		t.Fatalf("expected ErrIncompleteRecord, got %v", err)
	}
}

func TestHandleMessageRecords(t *testing.T) {
	cfg := testConfig(t)
	drv := NewDriver(cfg, nil)
	payload := testPatchPayload(t, cfg, 9)

	raw, err := cfg.ProgramDumpSysex(&PatchRecord{Payload: payload, Slot: 42})
	if err != nil {
		t.Fatal(err)
	}
	rec, err := drv.HandleMessage(raw)
	if err != nil {
		t.Fatal(err)
	}
	patch, ok := rec.(*PatchRecord)
	if !ok {
		t.Fatalf("program dump handled as %T", rec)
	}
	if patch.Slot != 42 {
		t.Errorf("slot %d, want 42", patch.Slot)
	}

	rec, err = drv.HandleMessage(cfg.EditBufferRequestSysex())
	if err != nil {
		t.Fatal(err)
	}
	req, ok := rec.(Request)
	if !ok || req.Kind != KindEditBufferDump {
		t.Errorf("bare 0x03 handled as %#v, want an edit buffer request", rec)
	}

	rec, err = drv.HandleMessage(cfg.GlobalsRequestSysex())
	if err != nil {
		t.Fatal(err)
	}
	req, ok = rec.(Request)
	if !ok || req.Kind != KindGlobalsRequest {
		t.Errorf("0x0E handled as %#v, want a globals request", rec)
	}
}

func TestSetParameterRequiresResolvedChannel(t *testing.T) {
	cfg := testConfig(t)
	drv := NewDriver(cfg, nil)

	if _, err := drv.SetParameter(ParamTranspose, 14); !errors.Is(err, ErrChannelUnresolved) {
		t.Errorf("got %v, want ErrChannelUnresolved", err)
	}
	if _, err := drv.SetLocalControl(false); !errors.Is(err, ErrChannelUnresolved) {
		t.Errorf("got %v, want ErrChannelUnresolved", err)
	}
}

func TestSetParameterUsesResolvedChannel(t *testing.T) {
	drv, _ := resolvedDriver(t, 5)

	msgs, err := drv.SetParameter(ParamTranspose, 14)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4", len(msgs))
	}
	ch, _, _ := ccBytes(t, msgs[0].Bytes())
	if ch != 4 { // one-based 5 on the wire
		t.Errorf("writes on wire channel %d, want 4", ch)
	}

	// The cache refreshes from dumps only.
	if got := drv.Settings()[ParamTranspose]; got != 12 {
		t.Errorf("cache moved to %d before the device confirmed", got)
	}
}

func TestSetLocalControlUsesControllerPath(t *testing.T) {
	drv, _ := resolvedDriver(t, 1)

	msg, err := drv.SetLocalControl(false)
	if err != nil {
		t.Fatal(err)
	}
	ch, cc, val := ccBytes(t, msg.Bytes())
	if ch != 0 || cc != 0x7A || val != 0 {
		t.Errorf("got CC %d value %d on channel %d, want CC 122 value 0 on channel 0", cc, val, ch)
	}
}

func TestSetMIDIControlUsesNRPNPath(t *testing.T) {
	drv, _ := resolvedDriver(t, 1)

	msgs, err := drv.SetMIDIControl(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4", len(msgs))
	}
	_, cc, val := ccBytes(t, msgs[0].Bytes())
	if cc != 99 || val != uint8(1035>>7) {
		t.Errorf("address MSB message is CC %d value %d", cc, val)
	}
}

func TestChangeChannelUpdatesCache(t *testing.T) {
	drv, _ := resolvedDriver(t, 5)

	msgs, err := drv.ChangeChannel(Channel(9))
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4", len(msgs))
	}
	ch, err := drv.Channel()
	if err != nil {
		t.Fatal(err)
	}
	if ch != Channel(9) {
		t.Errorf("cached channel %v, want 9", ch)
	}
}

func TestApplyChangesEmitsOnlyDiffs(t *testing.T) {
	drv, _ := resolvedDriver(t, 5)

	next := drv.Settings()
	msgs, err := drv.ApplyChanges(next)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Fatalf("no-op diff produced %d messages", len(msgs))
	}

	next[ParamTranspose] = 14
	next[ParamPotMode] = 2
	msgs, err = drv.ApplyChanges(next)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 8 {
		t.Fatalf("two changed parameters produced %d messages, want 8", len(msgs))
	}
}

func TestApplyChangesSkipsUnsettableValues(t *testing.T) {
	drv, _ := resolvedDriver(t, 5)

	next := drv.Settings()
	next[ParamMIDIClockMode] = 4 // front-panel only
	next[ParamTranspose] = 10

	msgs, err := drv.ApplyChanges(next)
	if !errors.Is(err, ErrUnsupportedWrite) {
		t.Fatalf("expected ErrUnsupportedWrite diagnostic, got %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("settable change alongside the skip produced %d messages, want 4", len(msgs))
	}
}

type stubTuningCodec struct {
	prefix []byte
}

func (s *stubTuningCodec) Recognizes(raw []byte) bool {
	return bytes.HasPrefix(raw, s.prefix)
}

func (s *stubTuningCodec) Decode(raw []byte) (*TuningTable, error) {
	return &TuningTable{Name: "stub scale"}, nil
}

func TestTuningDumpsDelegateToCodec(t *testing.T) {
	cfg := testConfig(t)
	tuningMsg := []byte{0xF0, 0x7E, 0x00, 0x08, 0x01, 0xF7}
	drv := NewDriver(cfg, &stubTuningCodec{prefix: tuningMsg[:4]})

	rec, err := drv.HandleMessage(tuningMsg)
	if err != nil {
		t.Fatal(err)
	}
	table, ok := rec.(*TuningTable)
	if !ok {
		t.Fatalf("tuning dump handled as %T", rec)
	}
	if table.Name != "stub scale" {
		t.Errorf("table name %q", table.Name)
	}
}

// Package ob6 speaks the Sequential/DSI OB-6 sysex and NRPN protocol:
// nibble escaping for the 7-bit transport, message classification, the
// global settings registry with its firmware quirks, remote parameter
// writes and the channel-resolving handshake. All I/O stays with the
// caller; nothing in here blocks.
package ob6

import (
	"errors"
	"fmt"
	"sync"

	"gitlab.com/gomidi/midi/v2"
)

type HandshakeState int

const (
	// AwaitingResponse holds from construction or a sent settings request
	// until a valid settings dump arrives.
	AwaitingResponse HandshakeState = iota
	ChannelResolved
)

// Channel is the device's receive channel: 0 means omni, 1-16 a specific
// one-based channel.
type Channel int

const ChannelOmni Channel = 0

func (c Channel) Omni() bool { return c == ChannelOmni }

func (c Channel) String() string {
	if c.Omni() {
		return "omni"
	}
	return fmt.Sprintf("channel %d", int(c))
}

// Wire converts to the zero-based channel MIDI messages carry. Omni devices
// listen everywhere, so channel 1 is as good as any.
func (c Channel) Wire() uint8 {
	if c.Omni() {
		return 0
	}
	return uint8(c - 1)
}

// Record is one structured message handed to the host: *PatchRecord,
// *GlobalSettingsSnapshot, *TuningTable, or Request.
type Record interface {
	isRecord()
}

// Request is an inbound message that asks the host for data instead of
// carrying any.
type Request struct {
	Kind MessageKind
}

func (Request) isRecord() {}

// Driver holds the per-instance protocol state for one connected device.
// Classification and codec calls are pure; the only mutable state is the
// cached channel, control flags and last decoded settings, all written
// under the mutex so readers never see a half-updated set.
type Driver struct {
	cfg    *ModelConfig
	tuning TuningCodec

	mu           sync.Mutex
	state        HandshakeState
	channel      Channel
	localControl bool
	midiControl  bool
	settings     map[ParamID]int
}

// NewDriver wires a driver to one protocol model. tuning may be nil when
// the host does not route tuning dumps through this driver.
func NewDriver(model SynthProtocolModel, tuning TuningCodec) *Driver {
	return &Driver{cfg: model.Config(), tuning: tuning}
}

func (d *Driver) Config() *ModelConfig { return d.cfg }

// DetectRequest opens the handshake: it rewinds the state machine to
// AwaitingResponse and returns the global settings request the caller must
// send. Timeout and retry policy belong to the transport.
func (d *Driver) DetectRequest() []byte {
	d.mu.Lock()
	d.state = AwaitingResponse
	d.mu.Unlock()
	return d.cfg.GlobalsRequestSysex()
}

// HandleMessage classifies one inbound sysex and builds its record. Foreign
// and unrecognized messages return a nil Record and nil error; they are not
// failures, just not ours. A matching global settings dump additionally
// completes the handshake and refreshes the cached state, the only path
// besides another dump that does so.
func (d *Driver) HandleMessage(raw []byte) (Record, error) {
	if d.tuning != nil && d.tuning.Recognizes(raw) {
		return d.tuning.Decode(raw)
	}

	cl := Classify(raw, d.cfg)
	switch cl.Kind {
	case KindForeign, KindUnknown:
		return nil, nil
	case KindProgramDump:
		return d.cfg.patchFromClassification(cl)
	case KindEditBufferDump:
		if len(cl.Payload) == 0 {
			return Request{Kind: KindEditBufferDump}, nil
		}
		return d.cfg.patchFromClassification(cl)
	case KindGlobalsRequest:
		return Request{Kind: KindGlobalsRequest}, nil
	case KindGlobalsDump:
		return d.handleGlobalsDump(cl.Payload)
	}
	return nil, nil
}

func (d *Driver) handleGlobalsDump(payload []byte) (Record, error) {
	reg := d.cfg.Registry
	if len(payload) < reg.PayloadLength() {
		return nil, fmt.Errorf("ob6: settings payload %d of %d bytes: %w",
			len(payload), reg.PayloadLength(), ErrIncompleteRecord)
	}

	snap := &GlobalSettingsSnapshot{Raw: append([]byte(nil), payload...)}

	chDef, err := reg.Lookup(ParamMIDIChannel)
	if err != nil {
		return nil, err
	}
	ch := int(snap.Raw[chDef.Offset])
	if ch < 0 || ch > 16 {
		// Leave the handshake unresolved; the caller decides whether to
		// retry or give up.
		return nil, fmt.Errorf("ob6: channel byte %d: %w", ch, ErrInvalidDeviceResponse)
	}

	values := reg.Decode(snap)

	d.mu.Lock()
	d.state = ChannelResolved
	d.channel = Channel(ch)
	d.localControl = values[ParamLocalControl] == 1
	d.midiControl = values[ParamMIDIControl] == 1
	d.settings = values
	d.mu.Unlock()

	return snap, nil
}

func (d *Driver) State() HandshakeState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Channel returns the resolved device channel, or ErrChannelUnresolved
// before the handshake completed.
func (d *Driver) Channel() (Channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != ChannelResolved {
		return 0, ErrChannelUnresolved
	}
	return d.channel, nil
}

func (d *Driver) LocalControl() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.localControl
}

func (d *Driver) MIDIControl() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.midiControl
}

// Settings returns a copy of the last decoded settings, or nil before the
// first dump.
func (d *Driver) Settings() map[ParamID]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.settings == nil {
		return nil
	}
	out := make(map[ParamID]int, len(d.settings))
	for k, v := range d.settings {
		out[k] = v
	}
	return out
}

func (d *Driver) wireChannel() (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != ChannelResolved {
		return 0, ErrChannelUnresolved
	}
	return d.channel.Wire(), nil
}

// SetParameter builds the NRPN write for one parameter on the resolved
// channel. The cache is deliberately left alone: it only refreshes from
// settings dumps, so a re-read after a burst of writes shows what the
// hardware actually took.
func (d *Driver) SetParameter(id ParamID, value int) ([]midi.Message, error) {
	ch, err := d.wireChannel()
	if err != nil {
		return nil, err
	}
	return d.cfg.Registry.BuildWrite(ch, id, value)
}

// ChangeChannel moves the device to a new receive channel via NRPN. The
// cached channel follows immediately, because once the device switches it
// stops listening on the old one and the next write would go nowhere.
func (d *Driver) ChangeChannel(newChannel Channel) ([]midi.Message, error) {
	if newChannel < 0 || newChannel > 16 {
		return nil, fmt.Errorf("ob6: channel %d out of range: %w", newChannel, ErrUnsupportedWrite)
	}
	ch, err := d.wireChannel()
	if err != nil {
		return nil, err
	}
	msgs, err := d.cfg.Registry.BuildWrite(ch, ParamMIDIChannel, int(newChannel))
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.channel = newChannel
	d.mu.Unlock()
	return msgs, nil
}

// SetLocalControl uses the controller-change route (CC 122 on the device's
// channel), the only parameter with a dual write path. The documented NRPN
// address exists but the hardware ignores it; the CC route works as long as
// MIDI control is on.
func (d *Driver) SetLocalControl(on bool) (midi.Message, error) {
	ch, err := d.wireChannel()
	if err != nil {
		return nil, err
	}
	var v uint8
	if on {
		v = 1
	}
	return midi.ControlChange(ch, ccLocalControl, v), nil
}

// SetMIDIControl toggles sysex/NRPN control over the regular NRPN path.
func (d *Driver) SetMIDIControl(on bool) ([]midi.Message, error) {
	v := 0
	if on {
		v = 1
	}
	return d.SetParameter(ParamMIDIControl, v)
}

// ApplyChanges diffs next against the cached settings and returns the NRPN
// writes for every changed parameter, in registry order. Values the
// firmware would drop are skipped and reported through the returned error
// (wrapping ErrUnsupportedWrite) while the remaining writes still come
// back, so the caller can send them and surface the skips as diagnostics.
func (d *Driver) ApplyChanges(next map[ParamID]int) ([]midi.Message, error) {
	ch, err := d.wireChannel()
	if err != nil {
		return nil, err
	}
	prev := d.Settings()
	if prev == nil {
		return nil, ErrChannelUnresolved
	}

	var out []midi.Message
	var skipped []error
	for _, def := range d.cfg.Registry.Params() {
		value, ok := next[def.ID]
		if !ok || prev[def.ID] == value {
			continue
		}
		msgs, err := d.cfg.Registry.BuildWrite(ch, def.ID, value)
		if errors.Is(err, ErrUnsupportedWrite) {
			skipped = append(skipped, err)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, msgs...)
	}
	return out, errors.Join(skipped...)
}

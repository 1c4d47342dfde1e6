package ob6

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
)

// ParamID indexes the global settings registry. Ids are dense and ordered
// by category (Tuning, MIDI, Keyboard, Audio Setup, Front controls, Pedals,
// Scales, Controls), insertion order within a category.
type ParamID int

const (
	ParamMasterTune ParamID = iota
	ParamTranspose
	ParamMIDIChannel
	ParamMIDIClockMode
	ParamClockPort
	ParamTransmit
	ParamReceive
	ParamMIDIControl
	ParamSysexRouting
	ParamOutRouting
	ParamVelocityResponse
	ParamAftertouchResponse
	ParamStereoMono
	ParamPotMode
	ParamSeqJackMode
	ParamSustainPolarity
	ParamAltTuning
	ParamLocalControl
	ParamArpBeatSync

	numParams
)

type ValueKind int

const (
	ValueBool ValueKind = iota
	ValueRange
	ValueEnum
)

// ParameterDefinition describes one global setting: where it lives in the
// settings dump, how it is addressed over NRPN, and which of its legal
// values the firmware refuses on that path.
type ParameterDefinition struct {
	ID       ParamID
	Label    string
	Category string

	// NRPN is the remote-write address, globally unique on the device.
	NRPN uint16
	// Offset is the byte position inside the global settings payload.
	Offset int

	Kind     ValueKind
	Min, Max int      // ValueRange bounds
	Labels   []string // ValueEnum value names
	Default  int

	// Unsettable lists legal values the firmware accepts from the front
	// panel but silently drops when written over NRPN. They still show up
	// in settings dumps.
	Unsettable []int

	// WriteAddressSuspect flags the arp beat sync defect: the NRPN write
	// path appears to hit the wrong byte address. Undocumented by the
	// maker and unverified, so it is flagged here instead of "fixed".
	WriteAddressSuspect bool
}

func (p *ParameterDefinition) legalMin() int {
	if p.Kind == ValueRange {
		return p.Min
	}
	return 0
}

func (p *ParameterDefinition) legalMax() int {
	switch p.Kind {
	case ValueBool:
		return 1
	case ValueEnum:
		return len(p.Labels) - 1
	}
	return p.Max
}

// Clamp pulls an out-of-range raw value to the nearest legal one. Some
// firmware revisions report garbage in reserved upper bits; decoding must
// tolerate that rather than fail.
func (p *ParameterDefinition) Clamp(raw int) int {
	if raw < p.legalMin() {
		return p.legalMin()
	}
	if raw > p.legalMax() {
		return p.legalMax()
	}
	return raw
}

// Settable reports whether value survives the remote-write path.
func (p *ParameterDefinition) Settable(value int) bool {
	if value < p.legalMin() || value > p.legalMax() {
		return false
	}
	for _, v := range p.Unsettable {
		if v == value {
			return false
		}
	}
	return true
}

// ValueName renders a value for diagnostics: the enum label when there is
// one, the number otherwise.
func (p *ParameterDefinition) ValueName(value int) string {
	if p.Kind == ValueEnum && value >= 0 && value < len(p.Labels) {
		return p.Labels[value]
	}
	if p.Kind == ValueBool {
		if value == 0 {
			return "Off"
		}
		return "On"
	}
	return fmt.Sprintf("%d", value)
}

// GlobalSettingsSnapshot is one raw read of the device-wide configuration.
// The globals dump arrives unescaped, so Raw is a verbatim copy of the
// payload, indexed by ParameterDefinition offsets.
type GlobalSettingsSnapshot struct {
	Raw []byte
}

func (s *GlobalSettingsSnapshot) isRecord() {}

// RawValue reads one parameter's byte without interpretation or clamping.
// The second result is false when the snapshot is too short to hold it.
func (s *GlobalSettingsSnapshot) RawValue(p *ParameterDefinition) (int, bool) {
	if p.Offset >= len(s.Raw) {
		return 0, false
	}
	return int(s.Raw[p.Offset]), true
}

// Registry is the fixed table of global parameter definitions. Built once,
// immutable afterwards, shared by reference across driver instances and
// goroutines without locking.
type Registry struct {
	params []ParameterDefinition
	byID   map[ParamID]*ParameterDefinition
}

// NewRegistry builds the OB-6 parameter table. Construction validates the
// table invariants (unique addresses and offsets, quirk values legal) and
// panics on violation, since a bad table is a build defect rather than a
// runtime condition.
func NewRegistry() *Registry {
	r := &Registry{
		params: []ParameterDefinition{
			{ID: ParamMasterTune, Label: "Master Tune", Category: "Tuning", NRPN: 1024, Offset: 1,
				Kind: ValueRange, Min: 0, Max: 100, Default: 50},
			{ID: ParamTranspose, Label: "Transpose", Category: "Tuning", NRPN: 1025, Offset: 0,
				Kind: ValueRange, Min: 0, Max: 24, Default: 12},

			{ID: ParamMIDIChannel, Label: "MIDI Channel", Category: "MIDI", NRPN: 1026, Offset: 2,
				Kind: ValueEnum, Labels: []string{"Omni", "1", "2", "3", "4", "5", "6", "7", "8",
					"9", "10", "11", "12", "13", "14", "15", "16"}, Default: 0},
			{ID: ParamMIDIClockMode, Label: "MIDI Clock Mode", Category: "MIDI", NRPN: 1027, Offset: 3,
				Kind: ValueEnum, Labels: []string{"Off", "Master", "Slave", "Slave Thru", "Slave No S/S"},
				Default: 1, Unsettable: []int{4}},
			{ID: ParamClockPort, Label: "Clock Port", Category: "MIDI", NRPN: 1028, Offset: 4,
				Kind: ValueEnum, Labels: []string{"MIDI", "USB"}, Default: 0},
			{ID: ParamTransmit, Label: "Param Transmit", Category: "MIDI", NRPN: 1029, Offset: 5,
				Kind: ValueEnum, Labels: []string{"Off", "CC", "NRPN"}, Default: 2},
			{ID: ParamReceive, Label: "Param Receive", Category: "MIDI", NRPN: 1030, Offset: 6,
				Kind: ValueEnum, Labels: []string{"Off", "CC", "NRPN"}, Default: 2},
			{ID: ParamMIDIControl, Label: "MIDI Control", Category: "MIDI", NRPN: 1035, Offset: 7,
				Kind: ValueBool, Default: 1},
			{ID: ParamSysexRouting, Label: "MIDI SysEx", Category: "MIDI", NRPN: 1032, Offset: 8,
				Kind: ValueEnum, Labels: []string{"Off", "MIDI", "USB"}, Default: 0},
			{ID: ParamOutRouting, Label: "MIDI Out", Category: "MIDI", NRPN: 1033, Offset: 9,
				Kind: ValueEnum, Labels: []string{"MIDI", "USB"}, Default: 0},

			{ID: ParamVelocityResponse, Label: "Velocity Response", Category: "Keyboard", NRPN: 1041, Offset: 15,
				Kind: ValueRange, Min: 0, Max: 7, Default: 0},
			{ID: ParamAftertouchResponse, Label: "Aftertouch Response", Category: "Keyboard", NRPN: 1042, Offset: 16,
				Kind: ValueRange, Min: 0, Max: 3, Default: 0},

			{ID: ParamStereoMono, Label: "Stereo/Mono", Category: "Audio Setup", NRPN: 1043, Offset: 17,
				Kind: ValueEnum, Labels: []string{"Stereo", "Mono"}, Default: 0},

			{ID: ParamPotMode, Label: "Pot Mode", Category: "Front controls", NRPN: 1037, Offset: 12,
				Kind: ValueEnum, Labels: []string{"Relative", "Passthru", "Jump"}, Default: 0},

			{ID: ParamSeqJackMode, Label: "Sequencer Jack", Category: "Pedals", NRPN: 1039, Offset: 11,
				Kind: ValueEnum, Labels: []string{"Normal", "Trigger", "Gate", "Trigger-Gate"},
				Default: 0, Unsettable: []int{3}},
			{ID: ParamSustainPolarity, Label: "Sustain Polarity", Category: "Pedals", NRPN: 1040, Offset: 13,
				Kind: ValueEnum, Labels: []string{"Normal", "Reversed"}, Default: 0},

			{ID: ParamAltTuning, Label: "Alternative Tuning", Category: "Scales", NRPN: 1044, Offset: 14,
				Kind: ValueRange, Min: 0, Max: 16, Default: 0},

			// Local control has a second write path over CC 122; see
			// Driver.SetLocalControl. The NRPN address is documented but
			// the hardware ignores it.
			{ID: ParamLocalControl, Label: "Local Control", Category: "Controls", NRPN: 1031, Offset: 10,
				Kind: ValueBool, Default: 1},
			{ID: ParamArpBeatSync, Label: "Arp Beat Sync", Category: "Controls", NRPN: 1036, Offset: 18,
				Kind: ValueBool, Default: 0, WriteAddressSuspect: true},
		},
	}

	if len(r.params) != int(numParams) {
		panic(fmt.Sprintf("registry holds %d parameters, want %d", len(r.params), numParams))
	}

	r.byID = make(map[ParamID]*ParameterDefinition, len(r.params))
	seenNRPN := make(map[uint16]bool, len(r.params))
	seenOffset := make(map[int]bool, len(r.params))
	for i := range r.params {
		p := &r.params[i]
		if _, dup := r.byID[p.ID]; dup {
			panic(fmt.Sprintf("duplicate parameter id %d", p.ID))
		}
		if seenNRPN[p.NRPN] {
			panic(fmt.Sprintf("duplicate NRPN address %d", p.NRPN))
		}
		if seenOffset[p.Offset] || p.Offset >= len(r.params) {
			panic(fmt.Sprintf("bad payload offset %d for %q", p.Offset, p.Label))
		}
		for _, v := range p.Unsettable {
			if v < p.legalMin() || v > p.legalMax() {
				panic(fmt.Sprintf("quirk value %d outside legal set of %q", v, p.Label))
			}
		}
		r.byID[p.ID] = p
		seenNRPN[p.NRPN] = true
		seenOffset[p.Offset] = true
	}

	return r
}

// Params returns the definitions in category order. The returned slice is
// shared and must not be modified.
func (r *Registry) Params() []ParameterDefinition {
	return r.params
}

// Lookup resolves a parameter id. An unknown id is a programming error on
// the caller's side.
func (r *Registry) Lookup(id ParamID) (*ParameterDefinition, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownParameter, id)
	}
	return p, nil
}

// PayloadLength is the minimum globals-dump payload the registry can fully
// decode.
func (r *Registry) PayloadLength() int {
	return len(r.params)
}

// Decode reads every parameter out of a settings snapshot, clamping raw
// values to each parameter's legal set. Offsets past the end of a short
// snapshot fall back to the parameter default.
func (r *Registry) Decode(snap *GlobalSettingsSnapshot) map[ParamID]int {
	values := make(map[ParamID]int, len(r.params))
	for i := range r.params {
		p := &r.params[i]
		if p.Offset >= len(snap.Raw) {
			values[p.ID] = p.Default
			continue
		}
		values[p.ID] = p.Clamp(int(snap.Raw[p.Offset]))
	}
	return values
}

// BuildWrite produces the four controller-change messages that set one
// parameter remotely, or ErrUnsupportedWrite when the value is one the
// firmware is known to drop. channel is the zero-based wire channel.
func (r *Registry) BuildWrite(channel uint8, id ParamID, value int) ([]midi.Message, error) {
	p, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	if value < p.legalMin() || value > p.legalMax() {
		return nil, fmt.Errorf("ob6: %s has no value %d: %w", p.Label, value, ErrUnsupportedWrite)
	}
	if !p.Settable(value) {
		return nil, fmt.Errorf("ob6: %s = %s is front-panel only: %w",
			p.Label, p.ValueName(value), ErrUnsupportedWrite)
	}
	return CreateNRPN(channel, p.NRPN, uint16(value)), nil
}

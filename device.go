package main

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"ob6mcp/ob6"
)

const responseTimeout = 5 * time.Second

// Device couples the protocol driver with one open MIDI output port. The
// request/response plumbing, including the timeout, lives here: the ob6
// package never blocks or touches a port.
type Device struct {
	drv *ob6.Driver
	out drivers.Out
}

func OpenDevice(modelID byte, portIndex int) (*Device, func(), error) {
	model, err := ob6.ModelByID(modelID)
	if err != nil {
		return nil, nil, err
	}

	outs, err := drivers.Outs()
	if err != nil {
		return nil, nil, err
	}
	if portIndex < 0 || portIndex >= len(outs) {
		return nil, nil, fmt.Errorf("output port index %d out of range", portIndex)
	}

	out := outs[portIndex]
	if err := out.Open(); err != nil {
		return nil, nil, err
	}

	closer := func() {
		_ = out.Close()
		drivers.Close()
	}
	log.Println("Opened MIDI output port for", model.Name(), out.String())
	return &Device{drv: ob6.NewDriver(model, nil), out: out}, closer, nil
}

func (d *Device) Driver() *ob6.Driver { return d.drv }

// Send transmits a single MIDI message to the output port.
func (d *Device) Send(msg midi.Message) error {
	if !d.out.IsOpen() {
		if err := d.out.Open(); err != nil {
			return err
		}
	}
	return d.out.Send(msg.Bytes())
}

func (d *Device) SendAll(msgs []midi.Message) error {
	for _, msg := range msgs {
		if err := d.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

// SendSysEx transmits a raw SysEx frame.
func (d *Device) SendSysEx(data []byte) error {
	return d.Send(midi.Message(data))
}

// awaitRecord sends req and waits for the first inbound record that accept
// approves, discarding everything else until the timeout.
func (d *Device) awaitRecord(in drivers.In, req []byte, accept func(ob6.Record) bool) (ob6.Record, error) {
	msgCh := make(chan midi.Message, 4)

	stop, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
		if len(msg) > 0 && msg[0] == 0xF0 {
			select {
			case msgCh <- msg:
			default:
			}
		}
	}, midi.UseSysEx(), midi.SysExBufferSize(4096))
	if err != nil {
		return nil, fmt.Errorf("failed to listen for sysex: %w", err)
	}
	defer stop()

	if err := d.SendSysEx(req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	deadline := time.After(responseTimeout)
	for {
		select {
		case msg := <-msgCh:
			rec, err := d.drv.HandleMessage(msg)
			if err != nil {
				return nil, err
			}
			if rec != nil && accept(rec) {
				return rec, nil
			}
		case <-deadline:
			return nil, errors.New("timed out waiting for device response")
		}
	}
}

// Detect runs the handshake: send the global settings request, wait for the
// dump, and hand back the resolved channel.
func (d *Device) Detect(in drivers.In) (ob6.Channel, error) {
	_, err := d.awaitRecord(in, d.drv.DetectRequest(), func(r ob6.Record) bool {
		_, ok := r.(*ob6.GlobalSettingsSnapshot)
		return ok
	})
	if err != nil {
		return 0, err
	}
	return d.drv.Channel()
}

// RequestGlobals re-reads the device-wide settings, refreshing the driver's
// cached state as a side effect.
func (d *Device) RequestGlobals(in drivers.In) (*ob6.GlobalSettingsSnapshot, error) {
	rec, err := d.awaitRecord(in, d.drv.DetectRequest(), func(r ob6.Record) bool {
		_, ok := r.(*ob6.GlobalSettingsSnapshot)
		return ok
	})
	if err != nil {
		return nil, err
	}
	return rec.(*ob6.GlobalSettingsSnapshot), nil
}

// RequestEditBuffer asks the device for its currently sounding patch.
func (d *Device) RequestEditBuffer(in drivers.In) (*ob6.PatchRecord, error) {
	cfg := d.drv.Config()
	rec, err := d.awaitRecord(in, cfg.EditBufferRequestSysex(), func(r ob6.Record) bool {
		_, ok := r.(*ob6.PatchRecord)
		return ok
	})
	if err != nil {
		return nil, err
	}
	return rec.(*ob6.PatchRecord), nil
}

// SendPatch pushes a patch into the edit buffer so it sounds immediately
// without overwriting any slot.
func (d *Device) SendPatch(r *ob6.PatchRecord) error {
	return d.SendSysEx(d.drv.Config().EditBufferSysex(r))
}

// StorePatch writes a patch into a program slot.
func (d *Device) StorePatch(r *ob6.PatchRecord, bank, program int) error {
	cfg := d.drv.Config()
	if bank < 0 || bank >= cfg.Banks {
		return fmt.Errorf("bank must be 0-%d, got %d", cfg.Banks-1, bank)
	}
	if program < 0 || program >= cfg.PatchesPerBank {
		return fmt.Errorf("program must be 0-%d, got %d", cfg.PatchesPerBank-1, program)
	}
	stored := &ob6.PatchRecord{Payload: r.Payload, Slot: bank*cfg.PatchesPerBank + program}
	raw, err := cfg.ProgramDumpSysex(stored)
	if err != nil {
		return err
	}
	return d.SendSysEx(raw)
}

// SetParameter builds and sends the remote write for one global setting.
// The caller must have detected the device first.
func (d *Device) SetParameter(id ob6.ParamID, value int) error {
	msgs, err := d.drv.SetParameter(id, value)
	if err != nil {
		return err
	}
	return d.SendAll(msgs)
}

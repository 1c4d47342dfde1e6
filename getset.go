package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"gitlab.com/gomidi/midi/v2"

	"ob6mcp/ob6"
)

// patchJSON is the stdin/stdout shape of a patch. Payload marshals as
// base64, which keeps 1024 opaque bytes tolerable in a pipe.
type patchJSON struct {
	Name    string `json:"name"`
	Slot    int    `json:"slot"`
	Payload []byte `json:"payload"`
}

func detectDevice(inPortIdx int, dev *Device) {
	ch, err := dev.Detect(midi.GetInPorts()[inPortIdx])
	if err != nil {
		log.Fatalf("handshake failed: %v", err)
	}
	drv := dev.Driver()
	log.Printf("%s answered on %s (local control %v, MIDI control %v)",
		drv.Config().Name(), ch, drv.LocalControl(), drv.MIDIControl())
}

func getPatch(inPortIdx int, dev *Device) {
	p, err := dev.RequestEditBuffer(midi.GetInPorts()[inPortIdx])
	if err != nil {
		log.Fatalf("failed to read edit buffer: %v", err)
	}
	cfg := dev.Driver().Config()
	log.Println("Patch name", cfg.PatchName(p))

	asJson, err := json.MarshalIndent(&patchJSON{
		Name:    cfg.PatchName(p),
		Slot:    p.Slot,
		Payload: p.Payload,
	}, "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal patch to JSON: %v", err)
	}

	fmt.Println(string(asJson))
}

func readPatchFromStdin(cfg *ob6.ModelConfig) *ob6.PatchRecord {
	asJson, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatalf("failed to read patch JSON from stdin: %v", err)
	}

	var pj patchJSON
	if err := json.Unmarshal(asJson, &pj); err != nil {
		log.Fatalf("failed to unmarshal patch JSON: %v", err)
	}
	if len(pj.Payload) != cfg.PatchDataLength {
		log.Fatalf("patch payload is %d bytes, want %d", len(pj.Payload), cfg.PatchDataLength)
	}

	record := &ob6.PatchRecord{Payload: pj.Payload, Slot: ob6.EditBuffer}
	if pj.Name != "" {
		cfg.SetPatchName(record, pj.Name)
	}
	return record
}

func sendPatch(dev *Device) {
	record := readPatchFromStdin(dev.Driver().Config())
	if err := dev.SendPatch(record); err != nil {
		log.Fatalf("failed to send patch: %v", err)
	}
	log.Println("Patch sent to edit buffer.")
}

func storePatch(dev *Device, args []string) {
	if len(args) != 2 {
		log.Fatal("usage: store <bank 0-9> <program 0-99> (patch JSON on stdin)")
	}
	bank, err := strconv.Atoi(args[0])
	if err != nil {
		log.Fatalf("invalid bank %q: %v", args[0], err)
	}
	program, err := strconv.Atoi(args[1])
	if err != nil {
		log.Fatalf("invalid program %q: %v", args[1], err)
	}

	cfg := dev.Driver().Config()
	record := readPatchFromStdin(cfg)
	if err := dev.StorePatch(record, bank, program); err != nil {
		log.Fatalf("failed to store patch: %v", err)
	}
	log.Printf("Patch stored at bank %d (%s) program %d.", bank, cfg.FriendlyBankName(bank), program)
}

func getGlobals(inPortIdx int, dev *Device) {
	if _, err := dev.RequestGlobals(midi.GetInPorts()[inPortIdx]); err != nil {
		log.Fatalf("failed to read global settings: %v", err)
	}

	drv := dev.Driver()
	values := drv.Settings()
	for _, def := range drv.Config().Registry.Params() {
		note := ""
		if def.WriteAddressSuspect {
			note = " (remote write unreliable)"
		}
		fmt.Printf("%-14s %-20s %s%s\n", def.Category, def.Label, def.ValueName(values[def.ID]), note)
	}
}

func setGlobal(inPortIdx int, dev *Device, args []string) {
	if len(args) != 2 {
		log.Fatal(`usage: set <parameter label> <value> (e.g. set "MIDI Channel" 5)`)
	}

	drv := dev.Driver()
	def := findParameter(drv.Config(), args[0])
	if def == nil {
		log.Fatalf("no global parameter matches %q", args[0])
	}
	value, err := strconv.Atoi(args[1])
	if err != nil {
		log.Fatalf("invalid value %q: %v", args[1], err)
	}

	// Writes go to the device's channel, so detect first.
	if _, err := dev.Detect(midi.GetInPorts()[inPortIdx]); err != nil {
		log.Fatalf("handshake failed: %v", err)
	}

	if err := dev.SetParameter(def.ID, value); err != nil {
		if errors.Is(err, ob6.ErrUnsupportedWrite) {
			log.Printf("warning: %v (nothing sent, the hardware would ignore it)", err)
			return
		}
		log.Fatalf("failed to set %s: %v", def.Label, err)
	}
	log.Printf("%s set to %s.", def.Label, def.ValueName(value))
}

func findParameter(cfg *ob6.ModelConfig, label string) *ob6.ParameterDefinition {
	params := cfg.Registry.Params()
	for i := range params {
		if strings.EqualFold(params[i].Label, label) {
			return &params[i]
		}
	}
	return nil
}

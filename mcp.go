package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	_ "embed"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"gitlab.com/gomidi/midi/v2"

	"ob6mcp/ob6"
)

func runMCP(inPortIdx int, dev *Device) {

	s := server.NewMCPServer(
		"OB-6 MCP",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	docTool := mcp.NewTool("ob6_describe-sysex",
		mcp.WithDescription("Returns the SysEx implementation description for the OB-6 synthesizer."),
	)

	s.AddTool(docTool, docToolHandler)

	detectTool := mcp.NewTool("ob6_detect",
		mcp.WithDescription("Runs the device handshake and reports the resolved MIDI channel and control flags."),
	)
	s.AddTool(detectTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log.Println("[mcp] Handling detect request.")

		ch, err := dev.Detect(midi.GetInPorts()[inPortIdx])
		if err != nil {
			return nil, fmt.Errorf("handshake failed: %v", err)
		}
		drv := dev.Driver()
		return mcp.NewToolResultText(fmt.Sprintf("%s answered on %s (local control %v, MIDI control %v)",
			drv.Config().Name(), ch, drv.LocalControl(), drv.MIDIControl())), nil
	})

	getPatchTool := mcp.NewTool("ob6_get-patch",
		mcp.WithDescription("Retrieves the current edit buffer from the OB-6 synthesizer."),
	)
	s.AddTool(getPatchTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log.Println("[mcp] Handling get patch request.")

		p, err := dev.RequestEditBuffer(midi.GetInPorts()[inPortIdx])
		if err != nil {
			return nil, fmt.Errorf("failed to read edit buffer: %v", err)
		}

		cfg := dev.Driver().Config()
		asJson, err := json.MarshalIndent(&patchJSON{
			Name:    cfg.PatchName(p),
			Slot:    p.Slot,
			Payload: p.Payload,
		}, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal patch to JSON: %v", err)
		}

		return mcp.NewToolResultText(string(asJson)), nil
	})

	sendPatchTool := mcp.NewTool("ob6_send-patch",
		mcp.WithDescription("Sends a patch to the OB-6 edit buffer so it sounds immediately."),
		mcp.WithString("patch-json", mcp.Required(), mcp.Description("The patch in JSON format: name, slot, payload (base64 of 1024 bytes).")),
	)
	s.AddTool(sendPatchTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log.Println("[mcp] Handling send patch request.")

		patchJson, err := request.RequireString("patch-json")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		record, err := patchFromJSON(dev.Driver().Config(), patchJson)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if err := dev.SendPatch(record); err != nil {
			return nil, fmt.Errorf("failed to send patch: %v", err)
		}

		return mcp.NewToolResultText("Patch sent to edit buffer."), nil
	})

	storePatchTool := mcp.NewTool("ob6_store-patch",
		mcp.WithDescription("Stores a patch at a program slot on the OB-6."),
		mcp.WithNumber("bank", mcp.Required(), mcp.Description("The bank (0-9).")),
		mcp.WithNumber("program", mcp.Required(), mcp.Description("The program number within the bank (0-99).")),
		mcp.WithString("patch-json", mcp.Required(), mcp.Description("The patch in JSON format: name, slot, payload (base64 of 1024 bytes).")),
	)
	s.AddTool(storePatchTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log.Println("[mcp] Handling store patch request.")

		bank, err := request.RequireInt("bank")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		program, err := request.RequireInt("program")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		patchJson, err := request.RequireString("patch-json")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		record, err := patchFromJSON(dev.Driver().Config(), patchJson)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if err := dev.StorePatch(record, bank, program); err != nil {
			return nil, fmt.Errorf("failed to store patch: %v", err)
		}

		return mcp.NewToolResultText(fmt.Sprintf("Patch stored at bank %d program %d.", bank, program)), nil
	})

	getGlobalsTool := mcp.NewTool("ob6_get-globals",
		mcp.WithDescription("Reads the OB-6 global settings and returns every parameter with its decoded value."),
	)
	s.AddTool(getGlobalsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log.Println("[mcp] Handling get globals request.")

		if _, err := dev.RequestGlobals(midi.GetInPorts()[inPortIdx]); err != nil {
			return nil, fmt.Errorf("failed to read global settings: %v", err)
		}

		drv := dev.Driver()
		values := drv.Settings()

		type globalJSON struct {
			Parameter string `json:"parameter"`
			Category  string `json:"category"`
			Value     int    `json:"value"`
			Label     string `json:"label"`
		}
		var globals []globalJSON
		for _, def := range drv.Config().Registry.Params() {
			globals = append(globals, globalJSON{
				Parameter: def.Label,
				Category:  def.Category,
				Value:     values[def.ID],
				Label:     def.ValueName(values[def.ID]),
			})
		}

		asJson, err := json.MarshalIndent(globals, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal globals to JSON: %v", err)
		}
		return mcp.NewToolResultText(string(asJson)), nil
	})

	setGlobalTool := mcp.NewTool("ob6_set-global",
		mcp.WithDescription("Sets one OB-6 global parameter remotely via NRPN."),
		mcp.WithString("parameter", mcp.Required(), mcp.Description("The parameter label (e.g. \"MIDI Channel\").")),
		mcp.WithNumber("value", mcp.Required(), mcp.Description("The numeric value to set.")),
	)
	s.AddTool(setGlobalTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		log.Println("[mcp] Handling set global request.")

		name, err := request.RequireString("parameter")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		value, err := request.RequireInt("value")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		def := findParameter(dev.Driver().Config(), name)
		if def == nil {
			return mcp.NewToolResultError(fmt.Sprintf("no global parameter matches %q", name)), nil
		}

		if _, err := dev.Detect(midi.GetInPorts()[inPortIdx]); err != nil {
			return nil, fmt.Errorf("handshake failed: %v", err)
		}

		if err := dev.SetParameter(def.ID, value); err != nil {
			// Quirk-flagged values come back as a warning, not a failure:
			// nothing was sent and the hardware state is unchanged.
			return mcp.NewToolResultText(fmt.Sprintf("Not sent: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("%s set to %s.", def.Label, def.ValueName(value))), nil
	})

	playNotesTool := mcp.NewTool("ob6_play-test-notes",
		mcp.WithDescription("Plays test notes on the OB-6 synthesizer."),
	)
	s.AddTool(playNotesTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ch, err := dev.Detect(midi.GetInPorts()[inPortIdx])
		if err != nil {
			return nil, fmt.Errorf("handshake failed: %v", err)
		}
		if err := playTestNotes(dev, ch.Wire()); err != nil {
			return nil, fmt.Errorf("failed to play test notes: %v", err)
		}
		return mcp.NewToolResultText("Test notes played successfully."), nil
	})

	minor7Tool := mcp.NewTool("ob6_play-minor7",
		mcp.WithDescription("Plays a C minor 7 chord on the OB-6."),
	)
	s.AddTool(minor7Tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ch, err := dev.Detect(midi.GetInPorts()[inPortIdx])
		if err != nil {
			return nil, fmt.Errorf("handshake failed: %v", err)
		}
		if err := playMinor7Chord(dev, ch.Wire()); err != nil {
			return nil, fmt.Errorf("failed to play minor 7 chord: %v", err)
		}
		return mcp.NewToolResultText("C minor 7 chord played successfully."), nil
	})

	log.Println("Starting OB-6 MCP server...")

	if err := server.ServeStdio(s); err != nil {
		fmt.Printf("Server error: %v\n", err)
	}

}

func patchFromJSON(cfg *ob6.ModelConfig, raw string) (*ob6.PatchRecord, error) {
	var pj patchJSON
	if err := json.Unmarshal([]byte(raw), &pj); err != nil {
		return nil, fmt.Errorf("failed to unmarshal patch JSON: %v", err)
	}
	if len(pj.Payload) != cfg.PatchDataLength {
		return nil, fmt.Errorf("patch payload is %d bytes, want %d", len(pj.Payload), cfg.PatchDataLength)
	}
	record := &ob6.PatchRecord{Payload: pj.Payload, Slot: ob6.EditBuffer}
	if pj.Name != "" {
		cfg.SetPatchName(record, pj.Name)
	}
	return record, nil
}

//go:embed ob6_sysex_notes.txt
var sysexDoc string

func docToolHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	log.Println("[mcp] Handling SysEx documentation request.")

	return mcp.NewToolResultText(sysexDoc), nil
}

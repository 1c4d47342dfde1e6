package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"ob6mcp/ob6"
)

func main() {
	// The OB-6 shows up as "OB-6" or "OB-6 Module" depending on the USB
	// stack; matching on the shorter fragment covers both.
	const nameHint = "ob-6"

	log.Println("Available MIDI outputs:")
	log.Print(midi.GetOutPorts().String())

	portIdx, err := findOutPort(nameHint)
	if err != nil {
		log.Fatalf("could not find OB-6 MIDI out port: %v", err)
	}

	inPortIdx, err := findInPort(nameHint)
	if err != nil {
		log.Fatalf("could not find OB-6 MIDI in port: %v", err)
	}

	dev, closer, err := OpenDevice(ob6.OB6ModelID, portIdx)
	if err != nil {
		log.Fatalf("failed to open OB-6 output: %v", err)
	}
	defer closer()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "detect":
			detectDevice(inPortIdx, dev)
			return
		case "get":
			getPatch(inPortIdx, dev)
			return
		case "send":
			sendPatch(dev)
			return
		case "store":
			storePatch(dev, os.Args[2:])
			return
		case "globals":
			getGlobals(inPortIdx, dev)
			return
		case "set":
			setGlobal(inPortIdx, dev, os.Args[2:])
			return
		case "play":
			playCommand(inPortIdx, dev)
			return

		case "mcp":
			runMCP(inPortIdx, dev)
			return

		default:
			log.Fatalf("unknown command %q", os.Args[1])
		}
	}
	log.Println("exiting: no command specified")
}

func findOutPort(nameFragment string) (int, error) {
	outs := midi.GetOutPorts()
	if len(outs) == 0 {
		return -1, fmt.Errorf("no MIDI outputs available")
	}

	lower := strings.ToLower(nameFragment)
	for _, out := range outs {
		if strings.Contains(strings.ToLower(out.String()), lower) {
			return out.Number(), nil
		}
	}

	return -1, fmt.Errorf("no MIDI output contains %q", nameFragment)
}

func findInPort(nameFragment string) (int, error) {
	ins := midi.GetInPorts()
	if len(ins) == 0 {
		return -1, fmt.Errorf("no MIDI inputs available")
	}

	lower := strings.ToLower(nameFragment)
	for _, in := range ins {
		if strings.Contains(strings.ToLower(in.String()), lower) {
			return in.Number(), nil
		}
	}

	return -1, fmt.Errorf("no MIDI input contains %q", nameFragment)
}

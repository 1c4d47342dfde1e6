package main

import (
	"fmt"
	"log"
	"time"

	"gitlab.com/gomidi/midi/v2"
)

func playCommand(inPortIdx int, dev *Device) {
	// Resolve the channel first so the notes land where the device
	// listens; an omni device takes them anywhere.
	ch, err := dev.Detect(midi.GetInPorts()[inPortIdx])
	if err != nil {
		log.Fatalf("handshake failed: %v", err)
	}
	if err := playTestNotes(dev, ch.Wire()); err != nil {
		log.Fatalf("failed to play test notes: %v", err)
	}
}

func playTestNotes(dev *Device, channel uint8) error {
	notes := []uint8{midi.C(4), midi.E(4), midi.G(4)}
	for _, n := range notes {
		if err := dev.Send(midi.NoteOn(channel, n, 100)); err != nil {
			return fmt.Errorf("note on failed for %d: %w", n, err)
		}
		time.Sleep(200 * time.Millisecond)
		if err := dev.Send(midi.NoteOff(channel, n)); err != nil {
			return fmt.Errorf("note off failed for %d: %w", n, err)
		}
	}
	return nil
}

func playMinor7Chord(dev *Device, channel uint8) error {
	root := midi.C(4)
	chord := []uint8{root, root + 3, root + 7, root + 10}

	for _, n := range chord {
		if err := dev.Send(midi.NoteOn(channel, n, 100)); err != nil {
			return fmt.Errorf("note on failed for %d: %w", n, err)
		}
	}

	time.Sleep(4 * time.Second)

	for _, n := range chord {
		if err := dev.Send(midi.NoteOff(channel, n)); err != nil {
			return fmt.Errorf("note off failed for %d: %w", n, err)
		}
	}

	return nil
}

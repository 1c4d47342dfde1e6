package ob6

import "gitlab.com/gomidi/midi/v2"

// Controller numbers for the NRPN select/data-entry convention, plus the
// direct local-control controller the OB-6 honors on its own channel.
const (
	ccNRPNAddressMSB = 99
	ccNRPNAddressLSB = 98
	ccDataEntryMSB   = 6
	ccDataEntryLSB   = 38

	ccLocalControl = 0x7A
)

// CreateNRPN builds the four controller-change messages that address and
// write one parameter: parameter select (address MSB, LSB) followed by data
// entry (value MSB, LSB), 7 bits per half. The full 14-bit address and data
// spaces are supported even though the OB-6 only uses an 11-bit address
// subrange and small values. channel is zero-based.
func CreateNRPN(channel uint8, address uint16, value uint16) []midi.Message {
	return []midi.Message{
		midi.ControlChange(channel, ccNRPNAddressMSB, uint8(address>>7)&0x7F),
		midi.ControlChange(channel, ccNRPNAddressLSB, uint8(address)&0x7F),
		midi.ControlChange(channel, ccDataEntryMSB, uint8(value>>7)&0x7F),
		midi.ControlChange(channel, ccDataEntryLSB, uint8(value)&0x7F),
	}
}

package ob6

import "testing"

func ccBytes(t *testing.T, raw []byte) (channel, controller, value uint8) {
	t.Helper()
	if len(raw) != 3 || raw[0]&0xF0 != 0xB0 {
		t.Fatalf("not a controller change: % X", raw)
	}
	return raw[0] & 0x0F, raw[1], raw[2]
}

func TestCreateNRPNBitSplitting(t *testing.T) {
	cases := []struct {
		address, value         uint16
		aMSB, aLSB, vMSB, vLSB uint8
	}{
		{0, 0, 0, 0, 0, 0},
		{1026, 5, 8, 2, 0, 5}, // OB-6 MIDI channel
		{0x3FFF, 0x3FFF, 0x7F, 0x7F, 0x7F, 0x7F},
		{129, 200, 1, 1, 1, 72},
	}

	for _, tc := range cases {
		msgs := CreateNRPN(3, tc.address, tc.value)
		if len(msgs) != 4 {
			t.Fatalf("got %d messages, want 4", len(msgs))
		}

		wantCC := []uint8{99, 98, 6, 38}
		wantVal := []uint8{tc.aMSB, tc.aLSB, tc.vMSB, tc.vLSB}
		for i, msg := range msgs {
			ch, cc, val := ccBytes(t, msg.Bytes())
			if ch != 3 {
				t.Errorf("address %d message %d on channel %d, want 3", tc.address, i, ch)
			}
			if cc != wantCC[i] {
				t.Errorf("address %d message %d is CC %d, want %d", tc.address, i, cc, wantCC[i])
			}
			if val != wantVal[i] {
				t.Errorf("address %d message %d carries %d, want %d", tc.address, i, val, wantVal[i])
			}
		}
	}
}

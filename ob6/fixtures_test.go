package ob6

import (
	"math/rand"
	"testing"
)

func testConfig(t *testing.T) *ModelConfig {
	t.Helper()
	model, err := ModelByID(OB6ModelID)
	if err != nil {
		t.Fatalf("ModelByID: %v", err)
	}
	return model.Config()
}

func testPatchPayload(t *testing.T, cfg *ModelConfig, seed int64) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	payload := make([]byte, cfg.PatchDataLength)
	for i := range payload {
		payload[i] = byte(rng.Intn(256))
	}
	return payload
}

// defaultGlobalsPayload lays every registry default down at its offset, the
// way the device reports factory settings.
func defaultGlobalsPayload(t *testing.T, cfg *ModelConfig) []byte {
	t.Helper()
	payload := make([]byte, cfg.Registry.PayloadLength())
	for _, def := range cfg.Registry.Params() {
		payload[def.Offset] = byte(def.Default)
	}
	return payload
}

func globalsDumpSysex(cfg *ModelConfig, payload []byte) []byte {
	msg := []byte{SysexStart, cfg.VendorID, cfg.ModelID, CmdGlobalsDump}
	msg = append(msg, payload...)
	return append(msg, SysexEnd)
}

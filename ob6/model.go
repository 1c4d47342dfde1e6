package ob6

import "fmt"

// Zone marks the byte range [Start, End) inside a decoded patch payload.
type Zone struct {
	Start, End int
}

// SynthProtocolModel is the capability every instrument of this driver
// family exposes: a display name plus the protocol constants the codec and
// record builders need. Models are plain values selected through ModelByID;
// there is no shared base state.
type SynthProtocolModel interface {
	Name() string
	Config() *ModelConfig
}

// ModelConfig carries one instrument's protocol constants. It is built once
// and never mutated afterwards, so it may be shared freely across
// goroutines.
type ModelConfig struct {
	ModelName       string
	VendorID        byte
	ModelID         byte
	Banks           int
	PatchesPerBank  int
	PatchDataLength int

	// NameZone is the display-name storage inside the patch payload. It
	// must be zeroable without touching any voice parameter.
	NameZone    Zone
	DefaultName string

	Registry *Registry
}

func (c *ModelConfig) Name() string { return c.ModelName }

func (c *ModelConfig) Config() *ModelConfig { return c }

// BlankOutZones lists the payload ranges excluded from voice-only
// fingerprints.
func (c *ModelConfig) BlankOutZones() []Zone {
	return []Zone{c.NameZone}
}

// FriendlyBankName renders a bank as its slot range, "000 - 099" style.
func (c *ModelConfig) FriendlyBankName(bank int) string {
	return fmt.Sprintf("%03d - %03d", bank*c.PatchesPerBank, (bank+1)*c.PatchesPerBank-1)
}

// BankOf and ProgramOf split a slot back into its bank and program.
func (c *ModelConfig) BankOf(slot int) int    { return slot / c.PatchesPerBank }
func (c *ModelConfig) ProgramOf(slot int) int { return slot % c.PatchesPerBank }

// OB6ModelID is the model byte the OB-6 reports, 0b00101110.
const OB6ModelID = 0x2E

// ob6Registry is built once at process start and handed to every driver
// instance by reference. It is read-only after construction.
var ob6Registry = NewRegistry()

func newOB6Config() *ModelConfig {
	return &ModelConfig{
		ModelName:       "DSI OB-6",
		VendorID:        VendorDSI,
		ModelID:         OB6ModelID,
		Banks:           10,
		PatchesPerBank:  100,
		PatchDataLength: 1024,
		NameZone:        Zone{Start: 107, End: 127},
		DefaultName:     "Basic Program",
		Registry:        ob6Registry,
	}
}

// ModelByID selects the protocol model for a model byte. Only the OB-6 is
// registered here; sibling drivers register their own ids.
func ModelByID(modelID byte) (SynthProtocolModel, error) {
	switch modelID {
	case OB6ModelID:
		return newOB6Config(), nil
	}
	return nil, fmt.Errorf("ob6: no protocol model registered for id 0x%02X", modelID)
}

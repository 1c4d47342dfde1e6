package ob6

// TuningNote positions one key: the nearest equal-tempered semitone below
// plus a 14-bit fraction of a semitone.
type TuningNote struct {
	Semitone byte
	Fraction uint16
}

// TuningTable is the structured form of a note-tuning dump.
type TuningTable struct {
	Name  string
	Notes [128]TuningNote
}

func (t *TuningTable) isRecord() {}

// TuningCodec recognizes and decodes note-tuning dumps. The codec itself is
// shared across the sibling drivers and lives outside this package; a
// driver given an implementation hands matching messages to it instead of
// classifying them here.
type TuningCodec interface {
	Recognizes(raw []byte) bool
	Decode(raw []byte) (*TuningTable, error)
}

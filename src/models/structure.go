package models

// StructureKind names a detected market structure. The value doubles as the
// envelope type on the broadcast channel.
type StructureKind string

const (
	BreakOfStructure  StructureKind = "Break Of Structure"
	ChangeOfCharacter StructureKind = "Change Of Character"
	RelativeHigh      StructureKind = "Relative High"
	RelativeLow       StructureKind = "Relative Low"
	FairValueGap      StructureKind = "Fair Value Gap"
	OrderBlock        StructureKind = "Order Block"
)

// MOneDStructure is a point event at a single price.
type MOneDStructure struct {
	ID         string        `json:"id"`
	Symbol     string        `json:"symbol"`
	Resolution string        `json:"timerange"`
	Kind       StructureKind `json:"structure"`
	Timestamp  int64         `json:"timestamp"`
	Price      float64       `json:"price"`
	Direction  Direction     `json:"direction"`
}

// MTwoDStructure is a price range event.
type MTwoDStructure struct {
	ID         string        `json:"id"`
	Symbol     string        `json:"symbol"`
	Resolution string        `json:"timerange"`
	Kind       StructureKind `json:"structure"`
	Timestamp  int64         `json:"timestamp"`
	High       float64       `json:"high"`
	Low        float64       `json:"low"`
	Direction  Direction     `json:"direction"`
}

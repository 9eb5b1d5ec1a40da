package models

// Box is a normalized bounding box reported by the analysis service,
// ordered min-row, min-col, max-row, max-col. Components are either all
// fractional in [0,1] or all scaled by 1000 (the service's legacy
// convention); each box is self-consistent but a batch may mix both.
type Box [4]float64

func (b Box) MinRow() float64 { return b[0] }
func (b Box) MinCol() float64 { return b[1] }
func (b Box) MaxRow() float64 { return b[2] }
func (b Box) MaxCol() float64 { return b[3] }

// Flashcard is one generated card. LabelBox and StructureBox are only
// present for image-derived cards; Image is set after annotation and is
// never populated for cards without coordinate data.
type Flashcard struct {
	ID           string   `json:"id"`
	Front        string   `json:"front"`
	Back         string   `json:"back"`
	Tags         []string `json:"tags"`
	LabelBox     *Box     `json:"boundingBox,omitempty"`
	StructureBox *Box     `json:"structureBoundingBox,omitempty"`

	Image          []byte `json:"-"`
	ImageMediaType string `json:"-"`
}

// HasCoordinates reports whether the card carries a label box and is
// therefore eligible for annotation.
func (c *Flashcard) HasCoordinates() bool {
	return c.LabelBox != nil
}

// DocumentAnalysis is the read-only result of the document analysis call.
// It feeds export-time defaults (card count, deck naming) and nothing else.
type DocumentAnalysis struct {
	Language         string `json:"language"`
	Topic            string `json:"topic"`
	RecommendedCards int    `json:"recommendedCards"`
	Rationale        string `json:"rationale"`
	HasImagery       bool   `json:"hasImagery"`
	ImageCount       int    `json:"imageCount"`
}

// GenerationPrefs are the user-chosen knobs passed to card generation.
type GenerationPrefs struct {
	CardCount int
	Language  string
	DeckName  string
}

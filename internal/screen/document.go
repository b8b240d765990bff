package screen

import (
	"encoding/json"
	"strconv"
	"time"
)

// FlexID accepts a JSON id given as a number or a string.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexID(s)
		return nil
	}

	var i int64
	if err := json.Unmarshal(data, &i); err == nil {
		*f = FlexID(strconv.FormatInt(i, 10))
		return nil
	}

	// Unusable ids are dropped rather than failing the document.
	*f = ""
	return nil
}

// Document is one screen copied from the game, as delivered by the CLI,
// the HTTP API or the message bus.
type Document struct {
	ID         FlexID    `json:"id,omitempty"`
	Source     string    `json:"source,omitempty"`
	ReceivedAt time.Time `json:"received_at,omitempty"`
	Text       string    `json:"text"`
}

// DecodeDocument accepts either a JSON Document or raw screen text.
func DecodeDocument(data []byte) Document {
	var doc Document
	if json.Unmarshal(data, &doc) == nil && doc.Text != "" {
		return doc
	}
	return Document{Text: string(data)}
}

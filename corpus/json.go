package corpus

import (
	"encoding/json"
	"fmt"
	"os"
)

// A book file is a nested JSON array:
//
//	[                                 // sentences
//	  [                               // unroll paths of one sentence
//	    [ [pos, "word", discount, "label"], ... ],
//	  ],
//	]
//
// Each token is a 4-element tuple: position in the sentence, word
// string, repeat-visit discount and dependency label.

type rawToken struct {
	Position int
	Word     string
	Discount float64
	Label    string
}

func (t *rawToken) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) != 4 {
		return fmt.Errorf("token tuple has %d elements, want 4", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &t.Position); err != nil {
		return fmt.Errorf("token position: %w", err)
	}
	if err := json.Unmarshal(tuple[1], &t.Word); err != nil {
		return fmt.Errorf("token word: %w", err)
	}
	if err := json.Unmarshal(tuple[2], &t.Discount); err != nil {
		return fmt.Errorf("token discount: %w", err)
	}
	if err := json.Unmarshal(tuple[3], &t.Label); err != nil {
		return fmt.Errorf("token label: %w", err)
	}
	return nil
}

// parseBookFile reads and decodes one dependency-tree book.
func parseBookFile(path string) ([][][]rawToken, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var book [][][]rawToken
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("malformed book %s: %w", path, err)
	}
	return book, nil
}

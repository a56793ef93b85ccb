package scenario

import (
	"encoding/json"
	"fmt"
	"io"
)

// Document is the author-supplied scenario file format:
//
//	{
//	  "title": string, "description": string,
//	  "scenes": [
//	    { "id": integer, "text": string, "image"?: string, "end"?: boolean,
//	      "selection": [ { "text": string, "nextId": integer | [integer, ...] } ] }
//	  ]
//	}
type Document struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Scenes      []DocumentScene `json:"scenes"`
}

type DocumentScene struct {
	ID        int                 `json:"id"`
	Text      string              `json:"text"`
	Image     string              `json:"image,omitempty"`
	End       bool                `json:"end,omitempty"`
	Selection []DocumentSelection `json:"selection"`
}

type DocumentSelection struct {
	Text   string `json:"text"`
	NextID NextID `json:"nextId"`
}

// NextID is a transition target set. Authors write either a single integer or
// a non-empty list; both decode into the same set, so a deterministic jump is
// just the cardinality-one case.
type NextID []int

func (n *NextID) UnmarshalJSON(data []byte) error {
	var single int
	if err := json.Unmarshal(data, &single); err == nil {
		*n = NextID{single}
		return nil
	}
	var list []int
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("nextId must be an integer or a list of integers")
	}
	*n = NextID(list)
	return nil
}

func (n NextID) MarshalJSON() ([]byte, error) {
	if len(n) == 1 {
		return json.Marshal(n[0])
	}
	return json.Marshal([]int(n))
}

// ValidationError reports a malformed or internally inconsistent document.
// The store is guaranteed untouched when one is returned.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid scenario document: " + e.Reason
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Parse decodes a scenario document. Syntactic failures are reported as
// ValidationError; Parse does not run Validate.
func Parse(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, validationErrorf("malformed JSON: %v", err)
	}
	return &doc, nil
}

// Validate checks the document in three stages, failing fast on the first
// violation: structural shape, referential integrity of transition targets,
// and uniqueness of scene numbers.
func (d *Document) Validate() error {
	if d.Title == "" {
		return validationErrorf("title is required")
	}
	if len(d.Scenes) == 0 {
		return validationErrorf("at least one scene is required")
	}

	for _, sc := range d.Scenes {
		if sc.Text == "" {
			return validationErrorf("scene %d: text is required", sc.ID)
		}
		if !sc.End && len(sc.Selection) == 0 {
			return validationErrorf("scene %d: a non-terminal scene needs at least one selection", sc.ID)
		}
		for j, sel := range sc.Selection {
			if sel.Text == "" {
				return validationErrorf("scene %d: selection %d: text is required", sc.ID, j+1)
			}
			if len(sel.NextID) == 0 {
				return validationErrorf("scene %d: selection %q: at least one nextId is required", sc.ID, sel.Text)
			}
		}
	}

	declared := make(map[int]bool, len(d.Scenes))
	for _, sc := range d.Scenes {
		declared[sc.ID] = true
	}
	for _, sc := range d.Scenes {
		for _, sel := range sc.Selection {
			for _, target := range sel.NextID {
				if !declared[target] {
					return validationErrorf("scene %d: selection %q: nextId %d does not match any scene", sc.ID, sel.Text, target)
				}
			}
		}
	}

	seen := make(map[int]bool, len(d.Scenes))
	for _, sc := range d.Scenes {
		if seen[sc.ID] {
			return validationErrorf("duplicate scene id %d", sc.ID)
		}
		seen[sc.ID] = true
	}

	return nil
}

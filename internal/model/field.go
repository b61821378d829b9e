package model

import "strings"

// DefaultMissingMarker marks a column a chain never collects. It must never
// collide with a real value or with the empty string.
const DefaultMissingMarker = "#N/A"

// Field is an optional text value that remembers whether it was collected at all.
// The zero value is "not collected".
type Field struct {
	value     string
	collected bool
}

// Value returns a collected field. Surrounding whitespace is trimmed; a blank
// input yields a collected-but-empty field.
func Value(s string) Field {
	return Field{value: strings.TrimSpace(s), collected: true}
}

// NotCollected returns a field for a column the source never provides.
func NotCollected() Field {
	return Field{}
}

// Collected reports whether the source provides this column at all.
func (f Field) Collected() bool { return f.collected }

// Empty reports whether the field was collected but carries no text.
func (f Field) Empty() bool { return f.collected && f.value == "" }

// Filled reports whether the field carries non-empty text.
func (f Field) Filled() bool { return f.collected && f.value != "" }

// String returns the raw text; "" for both empty and not-collected fields.
func (f Field) String() string { return f.value }

// Cell renders the field for a tabular file using marker for not-collected values.
func (f Field) Cell(marker string) string {
	if !f.collected {
		return marker
	}
	return f.value
}

// ParseCell is the inverse of Cell.
func ParseCell(cell, marker string) Field {
	if cell == marker {
		return NotCollected()
	}
	return Value(cell)
}

// Or returns f when it is filled, otherwise alt.
func (f Field) Or(alt Field) Field {
	if f.Filled() {
		return f
	}
	return alt
}

package primerblast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coord is an integer coordinate that decodes from JSON integers, integral
// floats such as 78.0, and numeric strings.
type Coord int

// NewCoord returns a pointer to a Coord holding v.
func NewCoord(v int) *Coord {
	c := Coord(v)
	return &c
}

// Int converts a nullable Coord to a nullable int.
func (c *Coord) Int() *int {
	if c == nil {
		return nil
	}
	v := int(*c)
	return &v
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Coord) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if bytes.Equal(raw, []byte("null")) {
		return nil
	}
	text := string(raw)
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("decode coordinate: %w", err)
		}
		text = strings.TrimSpace(s)
	}
	if n, err := strconv.Atoi(text); err == nil {
		*c = Coord(n)
		return nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("decode coordinate %q: %w", text, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return fmt.Errorf("decode coordinate %q: not an integer", text)
	}
	*c = Coord(int(f))
	return nil
}

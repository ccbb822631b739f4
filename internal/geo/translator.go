// Package geo maps CAP administrative-area names to the names shown on the broadcast display.
package geo

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed area_format.json
var defaultTable []byte

type entry struct {
	Origin string `json:"origin"`
	Format string `json:"format"`
}

type table struct {
	Cities    []entry `json:"cities"`
	Townships []entry `json:"townships"`
}

// CountyPrefixLen is the fixed width, in characters, of the county code that leads a township name.
const CountyPrefixLen = 3

// Translator is an immutable name lookup.
type Translator struct {
	counties  map[string]string
	townships map[string]string
}

// Default returns the translator backed by the embedded display table.
func Default() *Translator {
	t, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("geo: embedded table: %v", err))
	}
	return t
}

// Parse builds a translator from a JSON table with "cities" and "townships" origin/format lists.
func Parse(raw []byte) (*Translator, error) {
	var tbl table
	if err := json.Unmarshal(raw, &tbl); err != nil {
		return nil, fmt.Errorf("decode table: %w", err)
	}

	t := &Translator{
		counties:  make(map[string]string, len(tbl.Cities)),
		townships: make(map[string]string, len(tbl.Townships)),
	}
	for _, e := range tbl.Cities {
		t.counties[e.Origin] = e.Format
	}
	for _, e := range tbl.Townships {
		t.townships[e.Origin] = e.Format
	}
	return t, nil
}

// TranslateCounty returns the display form of a county, or name itself when unknown.
func (t *Translator) TranslateCounty(name string) string {
	if v, ok := t.counties[name]; ok {
		return v
	}
	return name
}

// TranslateTownship returns the display form of a township, or name itself when unknown.
func (t *Translator) TranslateTownship(name string) string {
	if v, ok := t.townships[name]; ok {
		return v
	}
	return name
}

// TranslateArea converts a full "county+township" string: the leading county code first,
// then the remainder.
func (t *Translator) TranslateArea(area string) string {
	runes := []rune(area)
	if len(runes) <= CountyPrefixLen {
		return t.TranslateCounty(area)
	}
	county := string(runes[:CountyPrefixLen])
	rest := string(runes[CountyPrefixLen:])
	return t.TranslateCounty(county) + t.TranslateTownship(rest)
}

// Package sourcemap records where generated JavaScript came from.
//
// Design: The generator appends one Mapping per emitted statement while it
// writes. The same table backs position comments, lookups and the Source Map
// v3 encoding. Lines and columns are 1-based throughout; the v3 encoder
// converts to the 0-based form the format expects.
package sourcemap

import (
	"encoding/base64"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

// Mapping ties a generated position to a source position
type Mapping struct {
	GenLine int `json:"genLine"`
	GenCol  int `json:"genCol"`
	SrcLine int `json:"srcLine"`
	SrcCol  int `json:"srcCol"`
}

// Map is the position table of one generated file
type Map struct {
	File    string
	Source  string
	Content string // embedded as sourcesContent when set

	Mappings []Mapping
}

// New creates an empty map for a generated file and its source
func New(file, source string) *Map {
	return &Map{File: file, Source: source}
}

// Add records a mapping. Mappings are normally added in generated order;
// anything else is sorted before use.
func (m *Map) Add(genLine, genCol, srcLine, srcCol int) {
	m.Mappings = append(m.Mappings, Mapping{GenLine: genLine, GenCol: genCol, SrcLine: srcLine, SrcCol: srcCol})
}

// Len returns the number of mappings
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Mappings)
}

// Lookup returns the source position of a generated line. A line without
// a mapping of its own resolves to the closest mapped line above it.
func (m *Map) Lookup(genLine int) (Mapping, bool) {
	if m.Len() == 0 {
		return Mapping{}, false
	}
	ms := m.sorted()
	i := sort.Search(len(ms), func(i int) bool { return ms[i].GenLine > genLine })
	if i == 0 {
		return Mapping{}, false
	}
	// first mapping on the line wins
	line := ms[i-1].GenLine
	for i > 1 && ms[i-2].GenLine == line {
		i--
	}
	return ms[i-1], true
}

func (m *Map) sorted() []Mapping {
	ms := append([]Mapping(nil), m.Mappings...)
	sort.SliceStable(ms, func(i, j int) bool {
		if ms[i].GenLine != ms[j].GenLine {
			return ms[i].GenLine < ms[j].GenLine
		}
		return ms[i].GenCol < ms[j].GenCol
	})
	return ms
}

// Encode renders the mappings field of a v3 source map. Every segment has
// four fields; there is a single source and no names.
func (m *Map) Encode() string {
	var b strings.Builder
	line := 1
	prevCol, prevSrcLine, prevSrcCol := 0, 0, 0
	first := true

	for _, mp := range m.sorted() {
		if mp.GenLine < 1 {
			continue
		}
		for line < mp.GenLine {
			b.WriteByte(';')
			line++
			prevCol = 0
			first = true
		}
		if !first {
			b.WriteByte(',')
		}
		first = false

		col, srcLine, srcCol := mp.GenCol-1, mp.SrcLine-1, mp.SrcCol-1
		writeVLQ(&b, col-prevCol)
		writeVLQ(&b, 0)
		writeVLQ(&b, srcLine-prevSrcLine)
		writeVLQ(&b, srcCol-prevSrcCol)
		prevCol, prevSrcLine, prevSrcCol = col, srcLine, srcCol
	}
	return b.String()
}

type v3 struct {
	Version        int      `json:"version"`
	File           string   `json:"file,omitempty"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent,omitempty"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
}

// MarshalV3 encodes the map as Source Map revision 3 JSON
func (m *Map) MarshalV3() ([]byte, error) {
	doc := v3{
		Version:  3,
		File:     m.File,
		Sources:  []string{m.Source},
		Names:    []string{},
		Mappings: m.Encode(),
	}
	if m.Content != "" {
		doc.SourcesContent = []string{m.Content}
	}
	return json.Marshal(doc)
}

// Comment renders the map as an inline sourceMappingURL comment
func (m *Map) Comment() (string, error) {
	data, err := m.MarshalV3()
	if err != nil {
		return "", err
	}
	return "//# sourceMappingURL=data:application/json;charset=utf-8;base64," +
		base64.StdEncoding.EncodeToString(data), nil
}

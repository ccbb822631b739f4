package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentLookup(t *testing.T) {
	t.Parallel()

	doc := &Document{Root: &Node{Name: "alert", Children: []*Node{
		{Name: "identifier", Text: "  X1\n"},
		{Name: "info", Children: []*Node{
			{Name: "parameter", Children: []*Node{{Name: "valueName", Text: "counties"}}},
			{Name: "parameter", Children: []*Node{{Name: "valueName", Text: "townships"}}},
		}},
	}}}

	assert.Equal(t, "X1", doc.Lookup("identifier").Value())
	assert.Len(t, doc.Lookup("info").ChildrenNamed("parameter"), 2)
	assert.Nil(t, doc.Lookup("info", "eventCode", "value"))
	assert.Equal(t, "", doc.Lookup("missing").Value())

	var empty *Document
	assert.Nil(t, empty.Lookup("identifier"))
}

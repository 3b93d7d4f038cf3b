package backref

import (
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/simulator/pkg/xmlpath"
)

func parse(t *testing.T, s string) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(s))
	return doc
}

func write(t *testing.T, doc *etree.Document) string {
	t.Helper()
	s, err := doc.WriteToString()
	require.NoError(t, err)
	return s
}

func TestPattern(t *testing.T) {
	tests := []struct {
		in       string
		contains bool
		token    bool
	}{
		{"*(TEST-1)*", true, true},
		{"*(two words_3)*", true, true},
		{"*()*", true, true},
		{"ID-*(X)*", true, false},
		{"*(X)**(Y)*", true, false},
		{"*", false, false},
		{"*(X$)*", false, false},
		{"(X)", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.contains, Contains(tt.in))
			assert.Equal(t, tt.token, IsToken(tt.in))
		})
	}
}

func TestFind(t *testing.T) {
	assert.Equal(t, []string{"*(A)*", "*(B)*", "*(A)*"}, Find("x *(A)* y *(B)**(A)*"))
	assert.Empty(t, Find("nothing here"))
}

func TestScanParams(t *testing.T) {
	locs := ScanParams(map[string]string{
		"password": "*(PW)*",
		"br":       "*(TEST-1)*",
		"plain":    "1234",
		"both":     "*(A)*-*(B)*",
	})
	assert.Equal(t, []Location{
		{ID: "*(A)*", Address: "both"},
		{ID: "*(B)*", Address: "both"},
		{ID: "*(TEST-1)*", Address: "br"},
		{ID: "*(PW)*", Address: "password"},
	}, locs)
}

func TestReplaceText(t *testing.T) {
	values := []Value{{ID: "*(A)*", Value: "1"}, {ID: "*(B)*", Value: "2"}, {ID: "*(A)*", Value: "ignored"}}

	assert.Equal(t, "TEXT 1", ReplaceText("TEXT *(A)*", values))
	assert.Equal(t, "1-2-1 *(C)*", ReplaceText("*(A)*-*(B)*-*(A)* *(C)*", values))
	assert.Equal(t, "", ReplaceText("", values))
}

func TestReplaceText_ValueContainingID(t *testing.T) {
	got := ReplaceText("<*(A)*>", []Value{{ID: "*(A)*", Value: "*(A)**(A)*"}})
	assert.Equal(t, "<*(A)**(A)*>", got)
}

func TestScanDocument(t *testing.T) {
	doc := parse(t, `<response><out>A</out><out>*(TWO)*</out><group><out>*(THREE)*</out><out>*(TWO)*</out><out> 1 *(TWO)* 3 </out></group></response>`)

	locs, ns := ScanDocument(doc)
	assert.Empty(t, ns)
	assert.Equal(t, []Location{
		{ID: "*(TWO)*", Address: "/response[1]/out[2]/text()[1]"},
		{ID: "*(THREE)*", Address: "/response[1]/group[1]/out[1]/text()[1]"},
		{ID: "*(TWO)*", Address: "/response[1]/group[1]/out[2]/text()[1]"},
		{ID: "*(TWO)*", Address: "/response[1]/group[1]/out[3]/text()[1]"},
	}, locs)
}

func TestScanDocument_AttributesAndMixedContent(t *testing.T) {
	doc := parse(t, `<request test1="*(TEST-1)*"><in test2="*(TEST-2)*">*(TEST-3)*<x text4="*(TEST-4)*">*(TEST-5)*</x></in></request>`)

	locs, _ := ScanDocument(doc)
	assert.Equal(t, []Location{
		{ID: "*(TEST-3)*", Address: "/request[1]/in[1]/text()[1]"},
		{ID: "*(TEST-5)*", Address: "/request[1]/in[1]/x[1]/text()[1]"},
		{ID: "*(TEST-4)*", Address: "/request[1]/in[1]/x[1]/@text4"},
		{ID: "*(TEST-2)*", Address: "/request[1]/in[1]/@test2"},
		{ID: "*(TEST-1)*", Address: "/request[1]/@test1"},
	}, locs)
}

func TestScanDocument_Namespaces(t *testing.T) {
	doc := parse(t, `<y:response xmlns:y="http://x"><out xmlns="urn:d">*(A)*</out><y:out>*(B)*</y:out></y:response>`)

	locs, ns := ScanDocument(doc)
	assert.Equal(t, map[string]string{"y": "http://x"}, ns)
	assert.Equal(t, []Location{
		{ID: "*(A)*", Address: "/y:response[1]/*[local-name()='out'][1]/text()[1]"},
		{ID: "*(B)*", Address: "/y:response[1]/y:out[1]/text()[1]"},
	}, locs)
}

func TestScanDocument_Empty(t *testing.T) {
	locs, ns := ScanDocument(nil)
	assert.Empty(t, locs)
	assert.NotNil(t, ns)
}

func TestScanThenRender_RoundTrip(t *testing.T) {
	tmpl := parse(t, `<y:response xmlns:y="http://x" code="*(CODE)*"><out xmlns="urn:d">*(A)*</out><y:out>pre *(B)* post</y:out></y:response>`)
	locs, ns := ScanDocument(tmpl)

	values := []Value{{ID: "*(A)*", Value: "alpha"}, {ID: "*(B)*", Value: "beta"}, {ID: "*(CODE)*", Value: "42"}}
	out, err := Render(tmpl, locs, values, xmlpath.For(ns, tmpl))
	require.NoError(t, err)

	assert.Equal(t, `<y:response xmlns:y="http://x" code="42"><out xmlns="urn:d">alpha</out><y:out>pre beta post</y:out></y:response>`, write(t, out))
	assert.Contains(t, write(t, tmpl), "*(A)*", "template must not be modified")
}

func TestRender_MissingValueLeavesToken(t *testing.T) {
	tmpl := parse(t, `<r><a>*(A)*</a><b>*(B)*</b></r>`)
	locs, _ := ScanDocument(tmpl)

	out, err := Render(tmpl, locs, []Value{{ID: "*(A)*", Value: "1"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, `<r><a>1</a><b>*(B)*</b></r>`, write(t, out))
}

func TestLocate_ExplicitAddresses(t *testing.T) {
	tmpl := parse(t, `<y:response xmlns:y="http://x"><out>A</out><out>*(TWO)* and *(THREE)*</out></y:response>`)

	locs, err := Locate(tmpl, []string{"/y:response[1]/out[2]/text()[1]", "/y:response[1]/out[1]/text()[1]"}, xmlpath.NewDocumentResolver(tmpl))
	require.NoError(t, err)
	assert.Equal(t, []Location{
		{ID: "*(TWO)*", Address: "/y:response[1]/out[2]/text()[1]"},
		{ID: "*(THREE)*", Address: "/y:response[1]/out[2]/text()[1]"},
	}, locs)

	_, err = Locate(tmpl, []string{"not-an-address"}, nil)
	require.ErrorIs(t, err, xmlpath.ErrSyntax)
}

func TestCapture(t *testing.T) {
	control := parse(t, `<x:request xmlns:x="http://x"><in>1</in><in>*(TWO)*</in></x:request>`)
	actual := parse(t, `<z:request xmlns:z="http://x"><in>1</in><in>2</in></z:request>`)

	values, err := Capture(actual, []Location{
		{ID: "*(TWO)*", Address: "/x:request[1]/in[2]/text()[1]"},
		{ID: "*(GONE)*", Address: "/x:request[1]/in[9]/text()[1]"},
	}, xmlpath.NewDocumentResolver(control))
	require.NoError(t, err)
	assert.Equal(t, []Value{{ID: "*(TWO)*", Value: "2"}}, values)
}

func TestMergeAndLookup(t *testing.T) {
	merged := Merge([]Value{{ID: "a", Value: "1"}}, []Value{{ID: "a", Value: "x"}, {ID: "b", Value: "2"}})
	assert.Equal(t, []Value{{ID: "a", Value: "1"}, {ID: "b", Value: "2"}}, merged)

	v, ok := Lookup(merged, "b")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
	_, ok = Lookup(merged, "c")
	assert.False(t, ok)
}

package xmlutil

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/htmlindex"
)

// "<r>Räka</r>" in ISO-8859-1.
var latin1Body = []byte{'<', 'r', '>', 'R', 0xE4, 'k', 'a', '<', '/', 'r', '>'}

func TestParse(t *testing.T) {
	doc, err := Parse(`<?xml version="1.0" encoding="ISO-8859-1"?><username>a</username>`)
	require.NoError(t, err)
	assert.Equal(t, "username", doc.Root().Tag)

	_, err = Parse("1234")
	assert.True(t, errors.Is(err, ErrNoRoot))

	_, err = Parse("<a>")
	assert.Error(t, err)

	_, err = Parse("<a></b>")
	assert.Error(t, err)
}

func TestParseReader_RequestCharset(t *testing.T) {
	doc, err := ParseReader(bytes.NewReader(latin1Body), "ISO-8859-1")
	require.NoError(t, err)
	assert.Equal(t, "Räka", doc.Root().Text())
}

func TestParseReader_DeclaredCharset(t *testing.T) {
	body := append([]byte(`<?xml version="1.0" encoding="ISO-8859-1"?>`), latin1Body...)

	doc, err := ParseReader(bytes.NewReader(body), "")
	require.NoError(t, err)
	assert.Equal(t, "Räka", doc.Root().Text())
}

func TestParseReader_UnknownCharset(t *testing.T) {
	_, err := ParseReader(bytes.NewReader(latin1Body), "no-such-charset")
	assert.True(t, errors.Is(err, ErrUnknownCharset))
}

func TestCanonicalCharset(t *testing.T) {
	assert.Equal(t, "UTF-8", CanonicalCharset(""))
	assert.Equal(t, "UTF-8", CanonicalCharset("utf-8"))
	assert.Equal(t, "UTF-8", CanonicalCharset("bogus"))
	assert.Equal(t, "ISO-8859-1", CanonicalCharset("iso-8859-1"))
}

func TestCanonicalCharset_MIMENames(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"latin1", "ISO-8859-1"},
		{"ISO_8859-1:1987", "ISO-8859-1"},
		{"shift_jis", "Shift_JIS"},
		{"windows-1252", "windows-1252"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			name := CanonicalCharset(tt.label)
			assert.Equal(t, tt.want, name)

			// The reply label must be understood by WHATWG-table clients.
			_, err := htmlindex.Get(name)
			assert.NoError(t, err)
		})
	}
}

func TestDecodeString(t *testing.T) {
	s, err := DecodeString(latin1Body, "ISO-8859-1")
	require.NoError(t, err)
	assert.Equal(t, "<r>Räka</r>", s)

	s, err = DecodeString([]byte("plain"), "")
	require.NoError(t, err)
	assert.Equal(t, "plain", s)
}

func TestStringAndEncode(t *testing.T) {
	doc, err := Parse(`<?xml version="1.0"?><r a="1">Räka</r>`)
	require.NoError(t, err)

	s, err := String(doc)
	require.NoError(t, err)
	assert.Equal(t, `<r a="1">Räka</r>`, s)

	b, err := Encode(doc, "")
	require.NoError(t, err)
	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8"?><r a="1">Räka</r>`, string(b))

	b, err = Encode(doc, "iso-8859-1")
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(b, []byte{'R', 0xE4, 'k', 'a', '<', '/', 'r', '>'}))
	assert.True(t, bytes.HasPrefix(b, []byte(`<?xml version="1.0" encoding="ISO-8859-1"?>`)))

	_, err = String(nil)
	assert.True(t, errors.Is(err, ErrNoRoot))
}

func TestLooksLikeXML(t *testing.T) {
	assert.True(t, LooksLikeXML("<a/>"))
	assert.False(t, LooksLikeXML(" <a/>"))
	assert.False(t, LooksLikeXML("text"))
}

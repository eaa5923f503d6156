package document

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"testing"

	"github.com/bjaergning/rapport/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImages map[string][]byte

func (f fakeImages) PrepareForEmbedding(name string) []byte {
	return f[name]
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 30)), nil))
	return buf.Bytes()
}

func countPages(pdf []byte) int {
	return bytes.Count(pdf, []byte("<</Type /Page\n"))
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"2024-05-01T10:30:15.123456", "2024-05-01 10:30"},
		{"2024-05-01T10:30:15+02:00", "2024-05-01 10:30"},
		{"2024-05-01T10:30", "2024-05-01 10:30"},
		{"2024-05-01", "2024-05-01"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDate(tt.input))
		})
	}
}

func TestRender_Header(t *testing.T) {
	g := New(nil, WithCompression(false))
	report := database.Report{
		Timestamp: "2024-05-01T10:30:15.123456",
		Location:  "Havn 3",
		Subject:   "Lækage",
	}
	entries := []database.Entry{{Time: "10:00", Description: "Ankomst"}}

	out, err := g.Render(report, entries)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Contains(t, string(out), "(Sted: Havn 3)")
	assert.Contains(t, string(out), "(Dato: 2024-05-01 10:30)")
	assert.Contains(t, string(out), "(10:00 - Ankomst)")
	// cp1252 encoded
	assert.Contains(t, string(out), "(Opgave: L\xe6kage)")
	assert.Contains(t, string(out), "(Bj\xe6rgningsrapport)")
	assert.Contains(t, string(out), "(H\xe6ndelsesforl\xf8b:)")
	assert.Equal(t, 1, countPages(out))
}

func TestRender_EntryOrder(t *testing.T) {
	g := New(nil, WithCompression(false))
	entries := []database.Entry{
		{Time: "09:00", Description: "first"},
		{Time: "08:00", Description: "second"},
		{Time: "10:00", Description: "third"},
	}

	out, err := g.Render(database.Report{Timestamp: "2024-05-01T10:30:15"}, entries)
	require.NoError(t, err)

	first := bytes.Index(out, []byte("09:00 - first"))
	second := bytes.Index(out, []byte("08:00 - second"))
	third := bytes.Index(out, []byte("10:00 - third"))
	require.NotEqual(t, -1, first)
	assert.Less(t, first, second)
	assert.Less(t, second, third)
}

func TestRender_Paginates(t *testing.T) {
	g := New(nil, WithCompression(false))
	entries := make([]database.Entry, 0, 80)
	for i := 0; i < 80; i++ {
		entries = append(entries, database.Entry{Time: fmt.Sprintf("%02d:00", i%24), Description: "linje"})
	}

	out, err := g.Render(database.Report{Timestamp: "2024-05-01T10:30:15"}, entries)
	require.NoError(t, err)
	assert.Greater(t, countPages(out), 1)
}

func TestRender_EmbedsImages(t *testing.T) {
	images := fakeImages{"a.png": testJPEG(t), "b.jpg": testJPEG(t)}
	g := New(images, WithCompression(false), WithImageWidth(80))

	entries := []database.Entry{
		{Time: "10:00", Description: "med billede", Image: "a.png"},
		{Time: "10:05", Description: "uden billede"},
		{Time: "10:10", Description: "andet billede", Image: "b.jpg"},
	}

	out, err := g.Render(database.Report{Timestamp: "2024-05-01T10:30:15"}, entries)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(out, []byte("/Subtype /Image")))
}

func TestRender_SkipsBrokenImages(t *testing.T) {
	images := fakeImages{
		"good.png":    testJPEG(t),
		"garbage.png": []byte("definitely not a jpeg"),
	}
	g := New(images, WithCompression(false))

	entries := []database.Entry{
		{Time: "10:00", Description: "missing", Image: "missing.png"},
		{Time: "10:05", Description: "garbage", Image: "garbage.png"},
		{Time: "10:10", Description: "good", Image: "good.png"},
	}

	out, err := g.Render(database.Report{Timestamp: "2024-05-01T10:30:15"}, entries)
	require.NoError(t, err)
	assert.Equal(t, 1, bytes.Count(out, []byte("/Subtype /Image")))
	assert.Contains(t, string(out), "(10:10 - good)")
}

func TestRender_Compressed(t *testing.T) {
	g := New(nil)

	out, err := g.Render(database.Report{Timestamp: "2024-05-01T10:30:15", Location: "Havn 3"}, nil)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.NotContains(t, string(out), "(Sted: Havn 3)")
}

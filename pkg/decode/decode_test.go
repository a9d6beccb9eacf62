package decode_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veeableful/folder/pkg/decode"
)

func TestDocuments(t *testing.T) {
	t.Parallel()

	const payload = "id,title,author.name,author.handle\n" +
		"d1,Lunar New Year,Jane Doe,jdoe\n" +
		"d2,Happy Lunar Festival,,\n"

	docs, err := decode.Documents(strings.NewReader(payload))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, decode.Document{
		"title": "Lunar New Year",
		"author": decode.Document{
			"name":   "Jane Doe",
			"handle": "jdoe",
		},
	}, docs["d1"])

	assert.Equal(t, decode.Document{
		"title": "Happy Lunar Festival",
		"author": decode.Document{
			"name":   "",
			"handle": "",
		},
	}, docs["d2"])
}

func TestDocuments_EmptyPayload(t *testing.T) {
	t.Parallel()

	docs, err := decode.Documents(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDocuments_DeeplyNestedPath(t *testing.T) {
	t.Parallel()

	const payload = "id,a.b.c\nd1,leaf\n"

	docs, err := decode.Documents(strings.NewReader(payload))
	require.NoError(t, err)

	a, ok := docs["d1"]["a"].(decode.Document)
	require.True(t, ok)

	b, ok := a["b"].(decode.Document)
	require.True(t, ok)

	assert.Equal(t, "leaf", b["c"])
}

func TestDocumentStats(t *testing.T) {
	t.Parallel()

	const payload = "d1,lunar:3 year:1 new:2\n" +
		"d3,year:4 new:1\n"

	stats, err := decode.DocumentStats(strings.NewReader(payload))
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"lunar": 3, "year": 1, "new": 2}, stats["d1"])
	assert.Equal(t, map[string]int{"year": 4, "new": 1}, stats["d3"])
}

func TestDocumentStats_LaterLineOverwritesSameToken(t *testing.T) {
	t.Parallel()

	const payload = "d1,lunar:3\n" +
		"d1,lunar:9 year:1\n"

	stats, err := decode.DocumentStats(strings.NewReader(payload))
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"lunar": 9, "year": 1}, stats["d1"])
}

func TestDocumentStats_MalformedFrequency(t *testing.T) {
	t.Parallel()

	_, err := decode.DocumentStats(strings.NewReader("d1,lunar:notanumber\n"))
	assert.ErrorIs(t, err, decode.ErrMalformedRecord)
}

func TestTermStats(t *testing.T) {
	t.Parallel()

	const payload = "lunar,d1 d2\n" +
		"year,d1 d3\n"

	stats, err := decode.TermStats(strings.NewReader(payload))
	require.NoError(t, err)

	assert.Equal(t, []string{"d1", "d2"}, stats["lunar"])
	assert.Equal(t, []string{"d1", "d3"}, stats["year"])
}

func TestTermStats_RepeatedTokenAppends(t *testing.T) {
	t.Parallel()

	const payload = "lunar,d1 d2\n" +
		"lunar,d2 d4\n"

	stats, err := decode.TermStats(strings.NewReader(payload))
	require.NoError(t, err)

	assert.Equal(t, []string{"d1", "d2", "d2", "d4"}, stats["lunar"])
}

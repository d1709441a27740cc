package jsonl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solrexport/pkg/errors"
)

func TestStripFieldJSONL(t *testing.T) {
	in := strings.NewReader(`{"id":"doc-1","_version_":1790000000000000000,"title":"a"}

{"id":"doc-2", "title": "<b>"}
{"_version_":2,"id":"doc-3","nested":{"_version_":5}}
`)
	var out bytes.Buffer

	n, err := StripField(in, &out, "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	want := `{"id":"doc-1","title":"a"}
{"id":"doc-2","title":"<b>"}
{"id":"doc-3","nested":{"_version_":5}}
`
	assert.Equal(t, want, out.String())
}

func TestStripFieldArray(t *testing.T) {
	in := strings.NewReader(`
  [
    {"id": "doc-1", "_version_": 1},
    {"id": "doc-2"}
  ]`)
	var out bytes.Buffer

	n, err := StripField(in, &out, "_version_")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	want := `[
  {
    "id": "doc-1"
  },
  {
    "id": "doc-2"
  }
]
`
	assert.Equal(t, want, out.String())
}

func TestStripFieldCustomField(t *testing.T) {
	var out bytes.Buffer
	n, err := StripField(strings.NewReader(`{"id":"x","score":1.5}`), &out, "score")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "{\"id\":\"x\"}\n", out.String())
}

func TestStripFieldEmptyInput(t *testing.T) {
	var out bytes.Buffer
	n, err := StripField(strings.NewReader("  \n"), &out, "")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, out.String())
}

func TestStripFieldRejectsNonObjects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "scalar line", input: "{\"id\":1}\n42\n"},
		{name: "broken line", input: "{\"id\":1}\n{\"id\":\n"},
		{name: "array of scalars", input: `[1, 2]`},
		{name: "truncated array", input: `[{"id":1},`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := StripField(strings.NewReader(tt.input), &bytes.Buffer{}, "")
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeParsing))
		})
	}
}

func TestRemoveKeyKeepsOrder(t *testing.T) {
	doc, removed, err := removeKey([]byte(`{"z":1,"_version_":9,"a":{"b":[1,2]},"m":"x&y"}`), "_version_")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, `{"z":1,"a":{"b":[1,2]},"m":"x&y"}`, string(doc))

	doc, removed, err = removeKey([]byte(`{"a":1}`), "_version_")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, `{"a":1}`, string(doc))
}

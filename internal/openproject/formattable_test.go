package openproject

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormattable_Variants(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		want   string
		isNull bool
	}{
		{name: "null", input: `null`, want: "", isNull: true},
		{name: "plain string", input: `"just text"`, want: "just text"},
		{name: "raw wins", input: `{"format":"markdown","raw":"**bold**","html":"<p><strong>bold</strong></p>"}`, want: "**bold**"},
		{name: "html fallback", input: `{"format":"markdown","raw":"","html":"<p>Fish &amp; <em>chips</em></p>"}`, want: "Fish & chips"},
		{name: "empty object", input: `{"format":"markdown"}`, want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var f Formattable
			require.NoError(t, json.Unmarshal([]byte(tc.input), &f))
			require.Equal(t, tc.want, f.Text())
			require.Equal(t, tc.isNull, f.IsNull())
		})
	}

	var bad Formattable
	require.Error(t, json.Unmarshal([]byte(`42`), &bad))
}

func TestFormattable_AbsentField(t *testing.T) {
	var wire workPackageWire
	require.NoError(t, json.Unmarshal([]byte(`{"id":1}`), &wire))
	require.Equal(t, "", wire.Description.Text())
	require.True(t, wire.Description.IsNull())
}

func TestFormattable_PlainTextRoundTrip(t *testing.T) {
	for _, text := range []string{"", "hello", "line one\nline two", "<not html> & \"quotes\""} {
		data, err := json.Marshal(textInput(text))
		require.NoError(t, err)

		var f Formattable
		require.NoError(t, json.Unmarshal(data, &f))
		require.Equal(t, text, f.Text())
	}
}

package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type choicePayload struct {
	Choice int `json:"choice"`
}

func TestDecodeObjectStrict(t *testing.T) {
	var out choicePayload
	require.NoError(t, decodeObject(`{"choice": 2}`, &out))
	assert.Equal(t, 2, out.Choice)
}

func TestDecodeObjectWithSurroundingProse(t *testing.T) {
	raw := "Sure! Here is my selection:\n{\"choice\": 3}\nLet me know if you need anything else."
	var out choicePayload
	require.NoError(t, decodeObject(raw, &out))
	assert.Equal(t, 3, out.Choice)
}

func TestDecodeObjectInCodeFence(t *testing.T) {
	raw := "```json\n{\"choice\": 1}\n```"
	var out choicePayload
	require.NoError(t, decodeObject(raw, &out))
	assert.Equal(t, 1, out.Choice)
}

func TestDecodeObjectNestedBraces(t *testing.T) {
	raw := `prefix {"buckets":[{"title":"Infra {core}","idea_indices":[1]}]} suffix`
	var out struct {
		Buckets []struct {
			Title       string `json:"title"`
			IdeaIndices []int  `json:"idea_indices"`
		} `json:"buckets"`
	}
	require.NoError(t, decodeObject(raw, &out))
	require.Len(t, out.Buckets, 1)
	assert.Equal(t, "Infra {core}", out.Buckets[0].Title)
}

func TestDecodeObjectBraceInsideString(t *testing.T) {
	raw := `{"title": "uses } and \" inside", "choice": 4}`
	var out struct {
		Title  string `json:"title"`
		Choice int    `json:"choice"`
	}
	require.NoError(t, decodeObject(raw, &out))
	assert.Equal(t, 4, out.Choice)
}

func TestDecodeObjectNoPayload(t *testing.T) {
	var out choicePayload
	err := decodeObject("I could not produce a classification.", &out)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestDecodeObjectUnbalanced(t *testing.T) {
	var out choicePayload
	err := decodeObject(`{"choice": 2`, &out)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestDecodeArray(t *testing.T) {
	var out []string
	require.NoError(t, decodeArray("the categories are: [\"a\", \"b\"] thanks", &out))
	assert.Equal(t, []string{"a", "b"}, out)
}

func TestDecodeArrayWrongShape(t *testing.T) {
	var out []string
	err := decodeArray(`{"not": "an array"}`, &out)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

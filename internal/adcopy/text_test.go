package adcopy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureSentence(t *testing.T) {
	tests := map[string]string{
		"":            "",
		"   ":         "",
		"hello":       "hello.",
		" hello!  ":   "hello!",
		"really?":     "really?",
		"done.":       "done.",
		"ends with :": "ends with :.",
	}
	for in, want := range tests {
		assert.Equal(t, want, ensureSentence(in), in)
	}
}

func TestDescribePalette(t *testing.T) {
	assert.Equal(t, "", describePalette(nil))
	assert.Equal(t, "#AABBCC as the hero hue", describePalette([]string{"#AABBCC"}))
	assert.Equal(t, "#A00000 anchored by #B00000", describePalette([]string{"#A00000", "#B00000"}))
	assert.Equal(t, "#A00000 anchored by #B00000, #C00000 and #D00000",
		describePalette([]string{"#A00000", "#B00000", "#C00000", "#D00000"}))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Launch Our New App", titleCase("launch our new app"))
	assert.Equal(t, "ÉTé Sale", titleCase("éTé sale"))
	assert.Equal(t, "Two  Spaces", titleCase("two  spaces"))
}

func TestJoinSentencesSkipsBlanks(t *testing.T) {
	assert.Equal(t, "One. Two! Three.", joinSentences("One", "", "  ", "Two!", "Three"))
}

package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONStripsFences(t *testing.T) {
	in := "```json\n{\"a\": 1}\n```"
	assert.Equal(t, `{"a": 1}`, extractJSON(in))
}

func TestExtractJSONBalancedObject(t *testing.T) {
	in := `here is your answer: {"a": {"b": 2}} trailing noise`
	assert.Equal(t, `{"a": {"b": 2}}`, extractJSON(in))
}

func TestExtractJSONNoObject(t *testing.T) {
	assert.Equal(t, "", extractJSON("no braces here"))
	assert.Equal(t, "", extractJSON(""))
	assert.Equal(t, "", extractJSON("{never closed"))
}

func TestContentFromChoices(t *testing.T) {
	body := []byte("{\"choices\": [{\"message\": {\"content\": \"```json\\n{\\\"x\\\": true}\\n```\"}}]}")
	assert.Equal(t, `{"x": true}`, contentFromChoices(body))
}

func TestContentFromChoicesMissing(t *testing.T) {
	assert.Equal(t, "", contentFromChoices([]byte(`{"choices": []}`)))
	assert.Equal(t, "", contentFromChoices([]byte(`not json`)))
}

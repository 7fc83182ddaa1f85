package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStringOrEmpty(t *testing.T) {
	cases := map[string]string{
		``:        "",
		`null`:    "",
		`"0D"`:    "0D",
		`""`:      "",
		`12`:      "12",
		`1.50`:    "1.50",
		`true`:    "True",
		`false`:   "False",
		`{"a":1}`: "",
		` "1xU" `: "1xU",
		`"broken`: "",
	}
	for raw, expected := range cases {
		assert.Equal(t, expected, ParseStringOrEmpty(json.RawMessage(raw)), "raw=%q", raw)
	}
}

func TestSanitizeTopicSegment(t *testing.T) {
	assert.Equal(t, "abc_123-X", SanitizeTopicSegment("abc_123-X"))
	assert.Equal(t, "", SanitizeTopicSegment(""))

	sanitized := SanitizeTopicSegment("a/b+c#")
	assert.Regexp(t, `^a_b_c__[0-9a-f]{8}$`, sanitized)
	assert.Equal(t, sanitized, SanitizeTopicSegment("a/b+c#"))
}

func TestSanitizeTopicSegmentAvoidsCollisions(t *testing.T) {
	assert.Equal(t, "a_b", SanitizeTopicSegment("a_b"))
	assert.NotEqual(t, SanitizeTopicSegment("a_b"), SanitizeTopicSegment("a/b"))
	assert.NotEqual(t, SanitizeTopicSegment("a+b"), SanitizeTopicSegment("a/b"))
}

package compose

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/tracectl/pkg/types"
)

func ptr[T any](v T) *T { return &v }

func compact(t *testing.T, raw string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.Compact(&buf, []byte(raw)))
	return buf.String()
}

func TestComposeOverridesModelAndTemperature(t *testing.T) {
	original := `{"model":"gpt-3.5-turbo","messages":[{"role":"user","content":"hi"}],"temperature":0.2}`

	p, err := Compose(original, Overrides{Model: ptr("gpt-4"), Temperature: ptr(0.9)})
	require.NoError(t, err)

	out, err := p.Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, `{"model":"gpt-4","messages":[{"role":"user","content":"hi"}],"temperature":0.9}`, string(out))
}

func TestComposeLeavesUnsetFieldsByteEqual(t *testing.T) {
	original := `{
		"model": "gpt-4o",
		"messages": [ {"role": "system", "content": "be brief"}, {"role": "user", "content": "is a<b && c>d?"} ],
		"temperature": 1.0,
		"stream": false,
		"tools": [{"type": "function", "function": {"name": "lookup", "description": "<html> & co", "parameters": {"type": "object"}}}],
		"max_tokens": 100
	}`
	var before map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(original), &before))

	p, err := Compose(original, Overrides{TopP: ptr(0.5), Temperature: ptr(0.3)})
	require.NoError(t, err)

	for key, raw := range before {
		if key == "temperature" {
			continue
		}
		assert.Equal(t, compact(t, string(raw)), compact(t, string(p[key])), "field %s changed", key)
	}
	assert.Equal(t, "0.5", string(p["top_p"]))
	assert.Equal(t, "0.3", string(p["temperature"]))
	assert.Len(t, p, len(before)+1)

	out, err := p.Marshal()
	require.NoError(t, err)
	var after map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &after))
	for _, key := range []string{"messages", "tools", "model", "stream", "max_tokens"} {
		assert.Equal(t, compact(t, string(before[key])), string(after[key]), "field %s changed on the wire", key)
	}
	assert.Contains(t, string(out), `"is a<b && c>d?"`)
	assert.NotContains(t, string(out), `\u003c`)
}

func TestComposeAllSamplingOverrides(t *testing.T) {
	original := `{"messages":[],"temperature":0.1,"max_tokens":10,"top_p":0.1,"frequency_penalty":0,"presence_penalty":0}`
	cfg := types.ReplayConfig{Temperature: 1.5, MaxTokens: 4096, TopP: 0.8, FrequencyPenalty: -1.2, PresencePenalty: 2}

	p, err := Compose(original, OverridesFromConfig(cfg))
	require.NoError(t, err)

	assert.Equal(t, "1.5", string(p["temperature"]))
	assert.Equal(t, "4096", string(p["max_tokens"]))
	assert.Equal(t, "0.8", string(p["top_p"]))
	assert.Equal(t, "-1.2", string(p["frequency_penalty"]))
	assert.Equal(t, "2", string(p["presence_penalty"]))
	_, hasModel := p["model"]
	assert.False(t, hasModel, "empty config model must not become an override")
}

func TestComposeModelGuardSkipsNonChat(t *testing.T) {
	original := `{"model":"text-davinci-003","prompt":"hello","temperature":0.2}`

	p, err := Compose(original, Overrides{Model: ptr("gpt-4"), Temperature: ptr(0.0)})
	require.NoError(t, err)

	assert.Equal(t, "text-davinci-003", p.StringField("model"))
	assert.Equal(t, "0", string(p["temperature"]))
}

func TestComposeNoOverridesIsIdentity(t *testing.T) {
	original := `{"model":"m","messages":[{"role":"user","content":"x"}]}`

	p, err := Compose(original, Overrides{})
	require.NoError(t, err)

	out, err := p.Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, original, string(out))
}

func TestComposeRejectsInvalidJSON(t *testing.T) {
	for _, in := range []string{"", "{", "not json", `{"model":}`, `[1,2]`, `"text"`, `null`} {
		_, err := Compose(in, Overrides{Temperature: ptr(0.5)})
		var perr *ParseError
		require.ErrorAs(t, err, &perr, "input %q", in)
	}
}

func TestPrettyDegradesToRawText(t *testing.T) {
	assert.Equal(t, "{\n  \"a\": 1\n}", Pretty(`{"a":1}`))
	assert.Equal(t, "not json {", Pretty("not json {"))
	assert.Equal(t, "", Pretty(""))
}

func TestEstimateRequestTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 1, EstimateTokens("你好"))
	req := `{"messages":[{"role":"user","content":"abcdefgh"},{"role":"assistant","content":[{"type":"text","text":"abcd"}]}]}`
	assert.Equal(t, 3, EstimateRequestTokens(req))
	assert.Equal(t, EstimateTokens("plain"), EstimateRequestTokens("plain"))
}

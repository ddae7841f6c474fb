package vendorclient

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvelopeSuccessMatchesResultCode000(t *testing.T) {
	var env Envelope
	assert.NoError(t, json.Unmarshal([]byte(`{"header":{"result_code":"000"},"body":{}}`), &env))
	assert.True(t, env.Success())
}

func TestEnvelopeSuccessFalseForAnyOtherCode(t *testing.T) {
	var env Envelope
	assert.NoError(t, json.Unmarshal([]byte(`{"header":{"result_code":"999"},"body":{}}`), &env))
	assert.False(t, env.Success())
}

func TestParsedBodyDiscriminatesListObjectAbsent(t *testing.T) {
	var listEnv Envelope
	assert.NoError(t, json.Unmarshal([]byte(`{"header":{"result_code":"000"},"body":[1,2,3]}`), &listEnv))
	list, ok := listEnv.ParsedBody().AsList()
	assert.True(t, ok)
	assert.Len(t, list, 3)

	var objEnv Envelope
	assert.NoError(t, json.Unmarshal([]byte(`{"header":{"result_code":"000"},"body":{"fifth_graphic":[]}}`), &objEnv))
	obj, ok := objEnv.ParsedBody().AsObject()
	assert.True(t, ok)
	assert.Contains(t, obj, "fifth_graphic")

	var absentEnv Envelope
	assert.NoError(t, json.Unmarshal([]byte(`{"header":{"result_code":"000"}}`), &absentEnv))
	assert.True(t, absentEnv.ParsedBody().IsAbsent())
}

func TestParsedBodyListRejectsAsObject(t *testing.T) {
	var env Envelope
	assert.NoError(t, json.Unmarshal([]byte(`{"header":{"result_code":"000"},"body":[1,2]}`), &env))
	_, ok := env.ParsedBody().AsObject()
	assert.False(t, ok)
}

func TestRawReturnsUntouchedBytes(t *testing.T) {
	var env Envelope
	assert.NoError(t, json.Unmarshal([]byte(`{"header":{"result_code":"000"},"body":{"a":1}}`), &env))
	assert.JSONEq(t, `{"a":1}`, string(env.ParsedBody().Raw()))
}

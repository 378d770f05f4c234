package model_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meta-secret/meta-secret-go/internal/model"
)

func TestBase64TextRoundTrip(t *testing.T) {
	original := model.Base64Text("vault secret bytes")

	encoded, err := json.Marshal(original)
	require.NoError(t, err)
	assert.JSONEq(t, `{"base64":"dmF1bHQgc2VjcmV0IGJ5dGVz"}`, string(encoded))

	var decoded model.Base64Text
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, original, decoded)
}

func TestBase64TextRejectsMalformedWire(t *testing.T) {
	var decoded model.Base64Text
	err := json.Unmarshal([]byte(`{"base64":"not-valid-base64!!"}`), &decoded)
	assert.Error(t, err)
}

package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want QueryID
	}{
		{`{"query_id":"q7"}`, "q7"},
		{`{"query_id":7}`, "7"},
		{`{"query_id":12.50}`, "12.50"},
		{`{"query_id":null}`, ""},
		{`{}`, ""},
	}
	for _, tt := range tests {
		var rec AnswerRecord
		require.NoError(t, json.Unmarshal([]byte(tt.in), &rec), tt.in)
		assert.Equal(t, tt.want, rec.QueryID, tt.in)
	}
}

func TestQueryID_RejectsOtherTypes(t *testing.T) {
	var rec AnswerRecord
	assert.Error(t, json.Unmarshal([]byte(`{"query_id":[1]}`), &rec))
	assert.Error(t, json.Unmarshal([]byte(`{"query_id":true}`), &rec))
}

func TestAnswerRecord_DerivedFieldsNotWritten(t *testing.T) {
	rec := AnswerRecord{QueryID: "q1", Chunking: "fixed", Representation: "emb", K: 3, Answer: "a",
		Config: "fixed/emb", SourceFile: "run.jsonl", HasK: true}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"query_id":"q1","chunking":"fixed","representation":"emb","k":3,"answer":"a"}`, string(data))
	assert.Equal(t, "fixed/emb", ConfigTag("fixed", "emb"))
}

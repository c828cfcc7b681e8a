package result

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_RoundTrip(t *testing.T) {
	raw := mustDecode(t, `{"result": {"final_content": "hi", "metadata": {"step_info": [{"step_name": "s1", "step_number": 0}]}, "step_results": {"s1": {"x": 1}}}}`)

	res, index := Resolve(raw, "J1")
	require.NotNil(t, res)
	assert.Equal(t, "hi", res.FinalContent)

	require.Equal(t, 1, index.Len())
	v, ok := index.Get("J1_step_0.json")
	require.True(t, ok)
	got, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(got))
}

func TestExtractStepIndex(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantKeys []string
	}{
		{
			name: "all steps present use step_number",
			raw: `{"step_results":{"a":1,"b":2,"c":3},"metadata":{"step_info":[
				{"step_name":"a","step_number":3},
				{"step_name":"b","step_number":4},
				{"step_name":"c","step_number":5}]}}`,
			wantKeys: []string{"job_step_3.json", "job_step_4.json", "job_step_5.json"},
		},
		{
			name: "positional fallback when step_number absent",
			raw: `{"step_results":{"a":1,"b":2},"metadata":{"step_info":[
				{"step_name":"a"},{"step_name":"b"}]}}`,
			wantKeys: []string{"job_step_0.json", "job_step_1.json"},
		},
		{
			name: "synthetic names match step_results",
			raw: `{"step_results":{"step_0":"x","step_1":"y"},"metadata":{"step_info":[{},{"step_number":7}]}}`,
			wantKeys: []string{"job_step_0.json", "job_step_7.json"},
		},
		{
			name: "steps without output are skipped",
			raw: `{"step_results":{"b":false},"metadata":{"step_info":[
				{"step_name":"a","step_number":0},{"step_name":"b","step_number":1}]}}`,
			wantKeys: []string{"job_step_1.json"},
		},
		{
			name:     "absent step_info",
			raw:      `{"step_results":{"a":1}}`,
			wantKeys: []string{},
		},
		{
			name:     "empty step_info",
			raw:      `{"step_results":{"a":1},"metadata":{"step_info":[]}}`,
			wantKeys: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Normalize(mustDecode(t, tt.raw))
			require.NotNil(t, res)
			index := ExtractStepIndex(res, "job")
			keys := index.Keys()
			if keys == nil {
				keys = []string{}
			}
			assert.Equal(t, tt.wantKeys, keys)
		})
	}
}

func TestExtractStepIndex_NullOutputIsIndexed(t *testing.T) {
	res := Normalize(mustDecode(t, `{"step_results":{"a":null},"metadata":{"step_info":[{"step_name":"a"}]}}`))
	index := ExtractStepIndex(res, "J")

	v, ok := index.Get("J_step_0.json")
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestExtractStepIndex_MistypedFieldKeepsStepNumber(t *testing.T) {
	res := Normalize(mustDecode(t, `{"step_results":{"s1":{"x":1}},"metadata":{"step_info":[
		{"step_name":"s1","step_number":3,"execution_time":"1.2s","status":1,"tokens_used":40}]}}`))
	require.NotNil(t, res)
	require.Len(t, res.Steps, 1)

	step := res.Steps[0]
	assert.Equal(t, 3, step.StepNumber)
	assert.Equal(t, "s1", step.StepName)
	assert.Nil(t, step.ExecutionTime)
	assert.Empty(t, step.Status)
	require.NotNil(t, step.TokensUsed)
	assert.Equal(t, 40, *step.TokensUsed)

	assert.Equal(t, []string{"J_step_3.json"}, ExtractStepIndex(res, "J").Keys())
}

func TestExtractStepIndex_NilResult(t *testing.T) {
	assert.Equal(t, 0, ExtractStepIndex(nil, "J").Len())
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "abc-123_step_4.json", CacheKey("abc-123", 4))
}

package approval

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-content-dashboard/internal/domain/jsonv"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	v, err := jsonv.Decode([]byte(s))
	require.NoError(t, err)
	return v
}

func TestFormat_NilAndString(t *testing.T) {
	assert.Equal(t, "No output available", Format(nil, "seo_keywords"))
	assert.Equal(t, "already text", Format("already text", "article_generation"))
	assert.Equal(t, "", Format("", "anything"))
	assert.Equal(t, "  *keep* me\n", Format("  *keep* me\n", "unknown"))
}

func TestFormat_ConfidenceScore(t *testing.T) {
	out := Format(map[string]any{"confidence_score": 0.873, "title": "X"}, "marketing_brief")
	assert.Contains(t, out, "Confidence Score:** 87.3%")

	got := Format(decode(t, `{"confidence_score":0.873,"title":"X"}`), "marketing_brief")
	want := "### Quality Metrics\n\n" +
		"- **Confidence Score:** 87.3%" +
		"\n\n---\n\n" +
		"**Confidence Score:** 0.873\n" +
		"**Title:** X"
	assert.Equal(t, want, got)
}

func TestFormat_QualityMetrics(t *testing.T) {
	got := Format(decode(t, `{"seo_score":72,"readability_score":"high","quality_score":8.3,"confidence_score":1}`), "seo_optimization")
	block := strings.SplitN(got, sectionSeparator, 2)[0]
	want := "### Quality Metrics\n\n" +
		"- **Confidence Score:** 100.0%\n" +
		"- **Quality Score:** 8.3\n" +
		"- **SEO Score:** 72.0"
	assert.Equal(t, want, block)
}

func TestFormat_NoMetricsBlockWithoutScores(t *testing.T) {
	got := Format(decode(t, `{"keywords":["a"]}`), "seo_keywords")
	assert.NotContains(t, got, "Quality Metrics")
	assert.NotContains(t, got, sectionSeparator)
}

func TestFormat_ArticleOrder(t *testing.T) {
	out := Format(decode(t, `{"word_count":120,"article_title":"Hello"}`), "article_generation")
	heading := strings.Index(out, "## Hello")
	words := strings.Index(out, "Word Count:")
	require.NotEqual(t, -1, heading)
	require.NotEqual(t, -1, words)
	assert.Less(t, heading, words)
	assert.Equal(t, "## Hello\n\n**Word Count:** 120", out)
}

func TestFormat_ArticleLayout(t *testing.T) {
	raw := decode(t, `{
		"word_count": 120,
		"call_to_action": "Buy",
		"extra_note": "n",
		"article_title": "Hello",
		"outline": ["Intro", "Body"],
		"full_content": "Text here",
		"key_takeaways": ["One"],
		"hook": "Hi"
	}`)

	want := "## Hello\n\n" +
		"**Opening Hook:** Hi\n\n" +
		"### Outline\n\n1. Intro\n2. Body\n\n" +
		"**Word Count:** 120\n\n" +
		"### Full Content\n\nText here\n\n" +
		"### Key Takeaways\n\n1. One\n\n" +
		"**Call to Action:** Buy\n\n" +
		"### Additional Information\n\n**Extra Note:** n"
	assert.Equal(t, want, Format(raw, "article_generation"))
}

func TestFormat_ArticleFieldsGenericForOtherSteps(t *testing.T) {
	got := Format(decode(t, `{"article_title":"Hello","word_count":120}`), "content_formatting")
	assert.Equal(t, "**Article Title:** Hello\n**Word Count:** 120", got)
}

func TestFormat_GenericGolden(t *testing.T) {
	assert.Equal(t, "**A:**\n  **B:** 1", Format(decode(t, `{"a":{"b":1}}`), "unknown_step"))
}

func TestFormat_GenericCollections(t *testing.T) {
	raw := decode(t, `{
		"tags": [],
		"keywords": ["a", "b"],
		"links": [{"url": "u", "title": "t"}, {"url": "v"}],
		"flag": true,
		"skipped": null,
		"empty": {},
		"items": [null, "x", null, "y"],
		"matrix": [[1, 2], [3]],
		"ratio": 1.50
	}`)

	want := strings.Join([]string{
		"**Tags:** None",
		"**Keywords:**",
		"  - a",
		"  - b",
		"**Links:**",
		"  1.",
		"    **Url:** u",
		"    **Title:** t",
		"  2.",
		"    **Url:** v",
		"**Flag:** Yes",
		"**Empty:** None",
		"**Items:**",
		"  - x",
		"  - y",
		"**Matrix:**",
		"  - 1, 2",
		"  - 3",
		"**Ratio:** 1.5",
	}, "\n")
	assert.Equal(t, want, Format(raw, "suggested_links"))
}

func TestFormat_NonObjectValues(t *testing.T) {
	assert.Equal(t, "- a\n- b", Format([]any{"a", "b"}, "seo_keywords"))
	assert.Equal(t, "None", Format([]any{}, "seo_keywords"))
	assert.Equal(t, "3.5", Format(3.5, "x"))
	assert.Equal(t, "42", Format(42, "x"))
	assert.Equal(t, "No", Format(false, "x"))
	assert.Equal(t, "No output available", Format(map[string]any{}, "x"))
	assert.Equal(t, "No output available", Format(decode(t, `{"a":null}`), "x"))
}

func TestFormat_DepthIsBounded(t *testing.T) {
	doc := `1`
	for i := 0; i < 40; i++ {
		doc = `{"k":` + doc + `}`
	}
	out := Format(decode(t, doc), "unknown")
	assert.Contains(t, out, truncatedMarker)
	assert.NotContains(t, out, "**K:** 1")

	lines := strings.Split(out, "\n")
	last := lines[len(lines)-1]
	assert.Equal(t, indent(maxDepth+1)+truncatedMarker, last)
}

func TestFormat_Deterministic(t *testing.T) {
	in := map[string]any{
		"zeta":             []any{map[string]any{"b": 2, "a": 1}},
		"alpha":            "x",
		"confidence_score": 0.5,
	}
	first := Format(in, "marketing_brief")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Format(in, "marketing_brief"))
	}
}

func TestFormatObject_Level(t *testing.T) {
	obj, ok := jsonv.AsObject(decode(t, `{"seo_title":"T","meta":{"robots":"index"}}`))
	require.True(t, ok)
	assert.Equal(t, "  **Seo Title:** T\n  **Meta:**\n    **Robots:** index", FormatObject(obj, 1))
	assert.Equal(t, "", FormatObject(nil, 0))
}

func TestStepType_Known(t *testing.T) {
	for _, s := range KnownStepTypes {
		assert.True(t, s.Known(), s)
	}
	assert.False(t, StepType("translation").Known())
}

func TestNaturalNumber(t *testing.T) {
	tests := map[string]string{
		"120":       "120",
		"-7":        "-7",
		"1.50":      "1.5",
		"0.1":       "0.1",
		"1e21":      "1e+21",
		"123456789": "123456789",
	}
	for in, want := range tests {
		assert.Equal(t, want, scalar(json.Number(in)), in)
	}
}

package approval

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/target/mmk-content-dashboard/internal/domain/jsonv"
)

// articleSection renders one field of the fixed article layout. The first
// alias present with a non-nil value is used.
type articleSection struct {
	aliases []string
	render  func(f *formatter, v any) string
}

var articleLayout = []articleSection{
	{aliases: []string{"article_title", "title", "headline"}, render: prefixed("## ")},
	{aliases: []string{"opening_hook", "hook"}, render: prefixed("**Opening Hook:** ")},
	{aliases: []string{"outline"}, render: numberedSection("### Outline")},
	{aliases: []string{"word_count"}, render: prefixed("**Word Count:** ")},
	{aliases: []string{"full_content", "content", "article_content", "body"}, render: bodySection("### Full Content")},
	{aliases: []string{"key_takeaways"}, render: numberedSection("### Key Takeaways")},
	{aliases: []string{"call_to_action", "cta"}, render: prefixed("**Call to Action:** ")},
}

// article renders an article_generation output in its fixed layout order, then
// everything the layout did not consume under Additional Information.
func (f *formatter) article(obj *jsonv.Object) string {
	consumed := mapset.NewThreadUnsafeSet[string]()
	var parts []string

	for _, section := range articleLayout {
		for _, key := range section.aliases {
			v, ok := obj.Get(key)
			if !ok || v == nil {
				continue
			}
			consumed.Add(key)
			if out := section.render(f, v); out != "" {
				parts = append(parts, out)
			}
			break
		}
	}

	rest := obj.Clone()
	for _, key := range obj.Keys() {
		if consumed.Contains(key) {
			rest.Delete(key)
		}
	}
	if body := f.object(rest, 0); body != "" {
		parts = append(parts, "### Additional Information\n\n"+body)
	}

	return strings.Join(parts, "\n\n")
}

func prefixed(prefix string) func(*formatter, any) string {
	return func(f *formatter, v any) string {
		text := f.text(v)
		if text == "" {
			return ""
		}
		return prefix + text
	}
}

func bodySection(heading string) func(*formatter, any) string {
	return func(f *formatter, v any) string {
		text := f.text(v)
		if text == "" {
			return ""
		}
		return heading + "\n\n" + text
	}
}

func numberedSection(heading string) func(*formatter, any) string {
	return func(f *formatter, v any) string {
		items, ok := jsonv.AsArray(v)
		if !ok {
			return bodySection(heading)(f, v)
		}
		body := f.listItems(items, 0, true)
		if body == "" {
			return ""
		}
		return heading + "\n\n" + body
	}
}

// text renders a layout field value. Structured values fall back to the
// generic rules.
func (f *formatter) text(v any) string {
	switch t := v.(type) {
	case *jsonv.Object:
		return f.object(t, 0)
	case []any:
		if len(t) == 0 {
			return ""
		}
		return f.list(t, 0)
	default:
		return strings.TrimSpace(scalar(v))
	}
}

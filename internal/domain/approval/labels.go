package approval

import (
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// cases.Caser keeps state between calls, so each formatter borrows its own.
type caserHolder struct {
	caser cases.Caser
}

var titleCasers = sync.Pool{
	New: func() any {
		return &caserHolder{caser: cases.Title(language.English, cases.NoLower)}
	},
}

var labelReplacer = strings.NewReplacer("_", " ", "-", " ")

// formatter carries the per-call title caser.
type formatter struct {
	holder *caserHolder
}

func newFormatter() *formatter {
	h, ok := titleCasers.Get().(*caserHolder)
	if !ok || h == nil {
		h = &caserHolder{caser: cases.Title(language.English, cases.NoLower)}
	}
	return &formatter{holder: h}
}

func (f *formatter) release() {
	if f.holder == nil {
		return
	}
	f.holder.caser.Reset()
	titleCasers.Put(f.holder)
	f.holder = nil
}

// label converts a snake_case key into its Title Case display form.
func (f *formatter) label(key string) string {
	spaced := strings.Join(strings.Fields(labelReplacer.Replace(key)), " ")
	if spaced == "" {
		return key
	}
	return f.holder.caser.String(spaced)
}

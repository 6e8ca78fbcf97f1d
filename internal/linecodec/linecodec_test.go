package linecodec

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/valpere/dichai/internal/session"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		line session.TextLine
		verb Verb
		want string
	}{
		{
			name: "fully tagged",
			line: session.TextLine{Character: "A", Expression: "Happy", Text: "Hello"},
			verb: Translate,
			want: "Character: A, Expression: Happy, text-to-translate: Hello",
		},
		{
			name: "character only",
			line: session.TextLine{Character: "A", Text: "Hello"},
			verb: Refine,
			want: "Character: A, text-to-refine: Hello",
		},
		{
			name: "expression only",
			line: session.TextLine{Expression: session.KeepOriginal, Text: "Hello"},
			verb: Translate,
			want: "Expression: keep-original, text-to-translate: Hello",
		},
		{
			name: "untagged",
			line: session.TextLine{Text: "Hello"},
			verb: Translate,
			want: "text-to-translate: Hello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Encode(tt.line, tt.verb))
		})
	}
}

func TestEncodeLines(t *testing.T) {
	lines := []session.TextLine{
		{Text: "one", Character: "An"},
		{Text: "two"},
	}

	got := EncodeLines(lines, Translate)

	assert.Equal(t, "Character: An, text-to-translate: one\ntext-to-translate: two", got)
}

func TestStripFull_EncodedLine(t *testing.T) {
	encoded := Encode(session.TextLine{Character: "A", Expression: "Happy", Text: "Hello"}, Translate)

	assert.Equal(t, "Hello", StripFull(encoded))
}

func TestRetag(t *testing.T) {
	in := "Character: An, text-to-translate: a\nTEXT-TO-TRANSLATE: b"

	assert.Equal(t, "Character: An, text-to-refine: a\ntext-to-refine: b", Retag(in))
}

func TestStripPartial_KeepsPrefixes(t *testing.T) {
	in := "## Chương 1\n**Character: An, Expression: Vui vẻ, text-to-refine: Xin *chào*!**\n> text-to-refine: dòng hai"

	got := StripPartial(in)

	assert.Equal(t, "Chương 1\nCharacter: An, Expression: Vui vẻ, text-to-refine: Xin chào!\ntext-to-refine: dòng hai", got)
}

func TestStripPartial_Markup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"heading", "### Title", "Title"},
		{"bold", "a **b** c", "a b c"},
		{"bold underscore", "a __b__ c", "a b c"},
		{"italic", "a *b* c", "a b c"},
		{"italic underscore", "a _b_ c", "a b c"},
		{"blockquote", "> quoted", "quoted"},
		{"bullet", "- item", "item"},
		{"star bullet with emphasis", "* item *x*", "item x"},
		{"numbered", "12. item", "item"},
		{"inline code", "use `x` here", "use x here"},
		{"fenced code", "```text\nbody\n```", "body\n"},
		{"horizontal rule", "a\n---\nb", "a\n\nb"},
		{"link", "see [docs](http://x.y)", "see docs"},
		{"image", "pic ![alt](http://x.y/p.png) end", "pic  end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripPartial(tt.in))
		})
	}
}

func TestStripFull(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "multiple lines",
			in:   "Character: An, Expression: Vui vẻ, text-to-refine: Chào em.\nCharacter: Binh, text-to-refine: Chào anh.",
			want: "Chào em.\nChào anh.",
		},
		{
			name: "case insensitive",
			in:   "character: An, TEXT-TO-REFINE:   Chào",
			want: "Chào",
		},
		{
			name: "blank runs collapse",
			in:   "text-to-refine: a\n\n\n\n\ntext-to-refine: b",
			want: "a\n\nb",
		},
		{
			name: "markup and prefixes",
			in:   "  **Character: An, text-to-refine: _Chào_**  \n",
			want: "Chào",
		},
		{
			name: "prefix does not swallow the next line",
			in:   "Character: An\ntext-to-refine: b, c",
			want: "Character: An\nb, c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFull(tt.in))
		})
	}
}

func TestStripFull_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"Character: An, Expression: Happy, text-to-translate: Hello",
		"***x***",
		"____",
		"a\n\n\n\n---\n\n\nb",
		"text-to-text-to-refine: refine: x",
		"**__*_nested_*__**",
		"```\n```\n```",
		"> > > deep",
		"1. 2. 3. list",
		"Character: Character: A, B, text-to-refine: x",
		"  \n\n\n  lots of space \n\n\n\n",
	}

	for _, in := range inputs {
		once := StripFull(in)
		assert.Equal(t, once, StripFull(once), "input %q", in)
	}
}

func keptOf(texts ...string) Kept {
	lines := make([]session.TextLine, len(texts))
	for i, t := range texts {
		lines[i] = session.TextLine{Text: t, Expression: session.KeepOriginal}
	}
	return KeptLines(lines)
}

func TestKeptLines(t *testing.T) {
	k := KeptLines([]session.TextLine{
		{Text: " 1. Mở đầu ", Expression: session.KeepOriginal},
		{Text: "translate me", Expression: "Happy"},
		{Text: "   ", Expression: session.KeepOriginal},
	})

	assert.Equal(t, Kept{"1. Mở đầu": {}}, k)
}

func TestKept_StripPartial(t *testing.T) {
	tests := []struct {
		name string
		kept Kept
		in   string
		want string
	}{
		{
			name: "tagged line untouched",
			in:   "Expression: keep-original, text-to-translate: snake_case_name\nCharacter: An, text-to-translate: *hi*",
			want: "Expression: keep-original, text-to-translate: snake_case_name\nCharacter: An, text-to-translate: hi",
		},
		{
			name: "tag is case insensitive",
			in:   "expression: KEEP-ORIGINAL, text-to-translate: 1. Chương một",
			want: "expression: KEEP-ORIGINAL, text-to-translate: 1. Chương một",
		},
		{
			name: "known text without tag",
			kept: keptOf("a *b* c"),
			in:   "text-to-translate: a *b* c\n> text-to-translate: x",
			want: "text-to-translate: a *b* c\ntext-to-translate: x",
		},
		{
			name: "other expressions stripped",
			in:   "> Expression: Happy, text-to-translate: *x*",
			want: "Expression: Happy, text-to-translate: x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kept.StripPartial(tt.in))
		})
	}
}

func TestKept_StripFull(t *testing.T) {
	k := keptOf("snake_case_name", "1. Chương một", "a *b* c", "> quote")
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"underscores", "Expression: keep-original, text-to-refine: snake_case_name", "snake_case_name"},
		{"numbered heading", "Expression: keep-original, text-to-refine: 1. Chương một", "1. Chương một"},
		{"emphasis", "text-to-refine: a *b* c", "a *b* c"},
		{"blockquote", "Expression: keep-original, text-to-refine: > quote", "> quote"},
		{
			name: "mixed with translated lines",
			in:   "Character: An, text-to-refine: **Chào**\nExpression: keep-original, text-to-refine: 1. Chương một\n\n\n\ntext-to-refine: _x_",
			want: "Chào\n1. Chương một\n\nx",
		},
		{"unknown text still stripped", "Expression: keep-original, text-to-refine: 2. Chương hai", "Chương hai"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := k.StripFull(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, k.StripFull(got))
		})
	}
}

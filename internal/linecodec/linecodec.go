// Package linecodec converts session lines to and from the prefixed markup
// exchanged with the language model:
//
//	Character: An, Expression: Vui vẻ, text-to-translate: Xin chào
//
// Both tag prefixes are optional; the verb prefix is always present.
package linecodec

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/valpere/dichai/internal/session"
)

type Verb string

const (
	Translate Verb = "translate"
	Refine    Verb = "refine"
)

const (
	characterPrefix  = "Character: "
	expressionPrefix = "Expression: "
)

// Prefix returns the verb marker, e.g. "text-to-refine: ".
func (v Verb) Prefix() string {
	return "text-to-" + string(v) + ": "
}

// Encode renders one line.
func Encode(line session.TextLine, verb Verb) string {
	return EncodeTagged(line.Character, line.Expression, line.Text, verb)
}

// EncodeTagged renders text with optional character and expression tags.
func EncodeTagged(character, expression, text string, verb Verb) string {
	var sb strings.Builder
	if character != "" {
		sb.WriteString(characterPrefix)
		sb.WriteString(character)
		sb.WriteString(", ")
	}
	if expression != "" {
		sb.WriteString(expressionPrefix)
		sb.WriteString(expression)
		sb.WriteString(", ")
	}
	sb.WriteString(verb.Prefix())
	sb.WriteString(text)
	return sb.String()
}

// EncodeLines renders every line, one per row, in order.
func EncodeLines(lines []session.TextLine, verb Verb) string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = Encode(l, verb)
	}
	return strings.Join(out, "\n")
}

var translateVerbRe = regexp.MustCompile(`(?i)text-to-translate:`)

// Retag switches translate-phase verb markers to the refine verb.
func Retag(text string) string {
	return translateVerbRe.ReplaceAllString(text, strings.TrimSuffix(Refine.Prefix(), " "))
}

type rule struct {
	re   *regexp.Regexp
	repl string
}

// Markup rules, applied in order. List markers go before emphasis so a
// bullet star is not paired with an emphasis star later on the same line.
var markupRules = []rule{
	{regexp.MustCompile("(?s)```[^\\n`]*\\n?(.*?)```"), "$1"},
	{regexp.MustCompile("`([^`\\n]+)`"), "$1"},
	{regexp.MustCompile(`(?m)^#+[ \t]+`), ""},
	{regexp.MustCompile(`(?m)^[-=_]{3,}[ \t]*$`), ""},
	{regexp.MustCompile(`(?m)^>[ \t]+`), ""},
	{regexp.MustCompile(`(?m)^[*\-+][ \t]+`), ""},
	{regexp.MustCompile(`(?m)^\d+\.[ \t]+`), ""},
	{regexp.MustCompile(`\*\*(.*?)\*\*`), "$1"},
	{regexp.MustCompile(`__(.*?)__`), "$1"},
	{regexp.MustCompile(`\*(.*?)\*`), "$1"},
	{regexp.MustCompile(`_(.*?)_`), "$1"},
	{regexp.MustCompile(`!\[[^\]\n]*\]\([^)\n]+\)`), ""},
	{regexp.MustCompile(`\[([^\]\n]+)\]\([^)\n]+\)`), "$1"},
}

// Structural prefixes. Matches never cross a line break.
var prefixRules = []rule{
	{regexp.MustCompile(`(?i)Character:[^,\n]*,[ \t]*`), ""},
	{regexp.MustCompile(`(?i)Expression:[^,\n]*,[ \t]*`), ""},
	{regexp.MustCompile(`(?i)text-to-(?:translate|refine):[ \t]*`), ""},
}

var (
	blankRunRe = regexp.MustCompile(`\n{3,}`)
	keepTagRe  = regexp.MustCompile(`(?i)Expression:[ \t]*` + regexp.QuoteMeta(session.KeepOriginal) + `[ \t]*,`)
)

func apply(text string, rules []rule) string {
	for _, r := range rules {
		text = r.re.ReplaceAllString(text, r.repl)
	}
	return text
}

func stripPrefixes(line string) string {
	for {
		next := apply(line, prefixRules)
		if next == line {
			return line
		}
		line = next
	}
}

// Kept is the set of keep-original line texts of a session. A reply line
// whose text, once its prefixes are gone, is one of them is never touched by
// the markup rules.
type Kept map[string]struct{}

// KeptLines collects the non-blank keep-original texts of lines.
func KeptLines(lines []session.TextLine) Kept {
	k := make(Kept)
	for _, l := range lines {
		if t := strings.TrimSpace(l.Text); l.IsKeepOriginal() && t != "" {
			k[t] = struct{}{}
		}
	}
	return k
}

func (k Kept) has(body string) bool {
	_, ok := k[strings.TrimSpace(body)]
	return ok
}

func placeholder(i int) string {
	return "\uE000" + strconv.Itoa(i) + "\uE001"
}

// shield swaps protected lines for placeholders that no rule matches. With
// bare set, a protected line is saved without its prefixes. byTag also
// protects lines that carry the keep-original expression prefix.
func (k Kept) shield(text string, bare, byTag bool) (string, []string) {
	lines := strings.Split(text, "\n")
	var saved []string
	for i, l := range lines {
		body := stripPrefixes(l)
		if !k.has(body) && !(byTag && keepTagRe.MatchString(l)) {
			continue
		}
		if !bare {
			body = l
		}
		lines[i] = placeholder(len(saved))
		saved = append(saved, body)
	}
	return strings.Join(lines, "\n"), saved
}

func unshield(text string, saved []string) string {
	for i, s := range saved {
		text = strings.Replace(text, placeholder(i), s, 1)
	}
	return text
}

// StripPartial removes markdown markup but keeps the line prefixes, so a
// stage-1 reply can be fed into the refinement prompt.
func StripPartial(text string) string {
	return Kept(nil).StripPartial(text)
}

// StripPartial is like the package-level StripPartial, but leaves kept lines
// and lines tagged keep-original exactly as they are.
func (k Kept) StripPartial(text string) string {
	text, saved := k.shield(text, false, true)
	return unshield(apply(text, markupRules), saved)
}

// StripFull removes line prefixes and markdown markup, collapses runs of
// three or more newlines to two and trims the result.
//
// Each pass only deletes characters, so the loop reaches a fixed point and
// StripFull(StripFull(x)) == StripFull(x).
func StripFull(text string) string {
	return Kept(nil).StripFull(text)
}

// StripFull is like the package-level StripFull, but a kept line only loses
// its prefixes. Lines are matched by text rather than by tag, since the tag
// is gone after the first pass.
func (k Kept) StripFull(text string) string {
	for {
		next := k.stripFullOnce(text)
		if next == text {
			return next
		}
		text = next
	}
}

func (k Kept) stripFullOnce(text string) string {
	text, saved := k.shield(text, true, false)
	text = apply(text, prefixRules)
	text = apply(text, markupRules)
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(unshield(text, saved))
}

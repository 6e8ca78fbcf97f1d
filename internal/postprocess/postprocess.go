// Package postprocess removes model artifacts from provider replies before
// the line codec sees them.
//
// Clean is applied to the extracted text of every provider call.
package postprocess

import (
	"regexp"
	"strings"
)

// Clean removes artifacts in three phases and returns the trimmed result:
//  1. reasoning blocks (<think>, <thinking>, ...)
//  2. an introductory sentence echoed ahead of the answer
//  3. quotes wrapped around a single-line reply
func Clean(text string) string {
	text = removeThinkingBlocks(text)
	text = removeIntroEchoes(text)
	text = removeQuoteWrapping(text)
	return strings.TrimSpace(text)
}

// RE2 has no backreferences, so every tag pair is listed.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// An opening tag with no closing tag: the model was cut off mid-thought.
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// introPatterns match a lead-in line such as "Đây là bản dịch đã trau chuốt:"
// or "Here is the translation:". Each is anchored at the start and must end
// in a colon on the same line.
var introPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:dưới )?đây là (?:bản dịch|bản trau chuốt|kết quả)[^:\n]{0,60}:`),
	regexp.MustCompile(`(?i)^(?:bản dịch|kết quả)(?: đã được| đã)?(?: trau chuốt| hoàn chỉnh)?(?: lại)?[ \t]*:[ \t]*\n`),
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the)? (?:refined |polished |translated )?(?:translation|text)[ \t]*:`),
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.]? here(?:'s| is)(?: the)? (?:refined |polished |translated )?(?:translation|text)[ \t]*:`),
}

func removeIntroEchoes(text string) string {
	for _, re := range introPatterns {
		if loc := re.FindStringIndex(text); loc != nil {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

// removeQuoteWrapping strips one pair of outer quotes from a single-line
// reply. Multi-line replies are left alone: dialogue often opens and closes
// with quotes on different lines.
//
//	"…"  '…'  «…»  “…”  ‘…’
func removeQuoteWrapping(text string) string {
	if strings.Contains(text, "\n") {
		return text
	}
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	first, last := runes[0], runes[n-1]
	if (first == '"' && last == '"') ||
		(first == '\'' && last == '\'') ||
		(first == '«' && last == '»') ||
		(first == '\u201C' && last == '\u201D') ||
		(first == '\u2018' && last == '\u2019') {
		return strings.TrimSpace(string(runes[1 : n-1]))
	}
	return text
}

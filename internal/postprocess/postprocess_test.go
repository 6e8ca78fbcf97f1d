package postprocess

import "testing"

func TestRemoveThinkingBlocks(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"no blocks", "text-to-refine: Chào anh.", "text-to-refine: Chào anh."},
		{"think block", "<think>dịch thế nào nhỉ</think>text-to-refine: Chào", "text-to-refine: Chào"},
		{"multiline thinking", "<thinking>\nline\nline\n</thinking>\nKết quả", "Kết quả"},
		{"upper case tag", "<THINK>x</THINK>y", "y"},
		{"truncated", "Before<reasoning>cut off", "Before"},
		{"two blocks", "<think>a</think>mid<reflection>b</reflection>", "mid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := removeThinkingBlocks(tt.input)
			if result != tt.expected {
				t.Errorf("removeThinkingBlocks(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRemoveIntroEchoes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "vietnamese lead-in",
			input:    "Đây là bản dịch đã được trau chuốt:\ntext-to-refine: Chào anh.",
			expected: "text-to-refine: Chào anh.",
		},
		{
			name:     "lower case lead-in",
			input:    "dưới đây là kết quả trau chuốt lại:\nChào",
			expected: "Chào",
		},
		{
			name:     "bare label on its own line",
			input:    "Bản dịch:\nChào anh.",
			expected: "Chào anh.",
		},
		{
			name:     "label inside content is kept",
			input:    "Chào anh.\nBản dịch: không",
			expected: "Chào anh.\nBản dịch: không",
		},
		{
			name:     "english lead-in",
			input:    "Here is the refined translation: Chào",
			expected: "Chào",
		},
		{
			name:     "no lead-in",
			input:    "Character: An, text-to-refine: Chào",
			expected: "Character: An, text-to-refine: Chào",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := removeIntroEchoes(tt.input)
			if result != tt.expected {
				t.Errorf("removeIntroEchoes(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRemoveQuoteWrapping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"straight quotes", `"Chào anh."`, "Chào anh."},
		{"curly quotes", "\u201CChào anh.\u201D", "Chào anh."},
		{"guillemets", "«Chào»", "Chào"},
		{"mismatched", `"Chào'`, `"Chào'`},
		{"single rune", `"`, `"`},
		{"multiline dialogue kept", "\"Chào anh.\"\n\"Chào em.\"", "\"Chào anh.\"\n\"Chào em.\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := removeQuoteWrapping(tt.input)
			if result != tt.expected {
				t.Errorf("removeQuoteWrapping(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestClean(t *testing.T) {
	input := "<think>plan</think>\nĐây là bản dịch:\nCharacter: An, text-to-translate: Chào em.\n"
	want := "Character: An, text-to-translate: Chào em."

	if got := Clean(input); got != want {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
}

package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/dichai/internal/session"
)

func scenario(t *testing.T) *session.Session {
	t.Helper()
	s := session.New()
	require.NoError(t, s.AddCharacter("An"))
	require.NoError(t, s.AddCharacter("Binh"))
	_, err := s.AddPronoun("An", "Binh", "anh", "")
	require.NoError(t, err)
	_, err = s.AddPronoun("Binh", "An", "em", "")
	require.NoError(t, err)
	require.NoError(t, s.AddExpression("Happy"))
	_, err = s.AddTextLine("Xin chào", "An", "Happy")
	require.NoError(t, err)
	return s
}

func TestBuildTranslation_Scenario(t *testing.T) {
	p := BuildTranslation(scenario(t).Snapshot())

	assert.Contains(t, p, `An: gọi Binh là "anh"`)
	assert.Contains(t, p, `Binh: gọi An là "em"`)
	assert.Contains(t, p, "Character: An, Expression: Happy, text-to-translate: Xin chào")
}

func TestBuildTranslation_SectionOrder(t *testing.T) {
	s := scenario(t)
	s.SetGenre("Ngôn tình")
	s.SetStyle("Hiện đại")
	s.SetContext("Hai người gặp nhau ở quán cà phê.")
	s.AddRelationship("An là anh họ của Binh")

	p := BuildTranslation(s.Snapshot())

	markers := []string{
		"Bạn là một dịch giả chuyên nghiệp",
		"XƯNG HÔ GIỮA CÁC NHÂN VẬT",
		"Thể loại: Ngôn tình",
		"Văn phong: Hiện đại",
		"MỐI QUAN HỆ GIỮA CÁC NHÂN VẬT:\n- An là anh họ của Binh",
		"BỐI CẢNH:\nHai người gặp nhau ở quán cà phê.",
		"YÊU CẦU BẮT BUỘC PHẢI TUÂN THỦ:\n- dịch phải đúng xưng hô",
		"Không được lặp từ giữa hai câu gần nhau",
		"Không được lặp từ trong cùng một câu",
		"XỬ LÝ LỖI LẶP TỪ",
		"VĂN BẢN CẦN DỊCH:",
		"text-to-translate: Xin chào",
		"NHẮC LẠI CÁC YÊU CẦU QUAN TRỌNG",
	}
	last := -1
	for _, m := range markers {
		idx := strings.Index(p, m)
		require.GreaterOrEqual(t, idx, 0, "missing %q", m)
		assert.Greater(t, idx, last, "%q out of order", m)
		last = idx
	}
}

func TestBuildTranslation_OptionalSections(t *testing.T) {
	p := BuildTranslation(scenario(t).Snapshot())

	assert.NotContains(t, p, "Thể loại:")
	assert.NotContains(t, p, "Văn phong:")
	assert.NotContains(t, p, "BỐI CẢNH:")
	assert.Contains(t, p, "MỐI QUAN HỆ GIỮA CÁC NHÂN VẬT:")
}

func TestFormatPronoun(t *testing.T) {
	got := FormatPronoun(session.PronounRule{From: "An", To: "Binh", Value: "anh", SelfValue: "em"})

	assert.Equal(t, `- An: gọi Binh là "anh", xưng bản thân là "em"`, got)
}

func TestExtractInfo(t *testing.T) {
	s := scenario(t)
	_, err := s.AddTextLine("Chapter 1", "", session.KeepOriginal)
	require.NoError(t, err)
	s.AddRelationship("  ")
	s.AddRelationship("bạn thân")
	s.SetStyle("  cổ trang ")

	info := ExtractInfo(s.Snapshot())

	assert.Len(t, info.Pronouns, 2)
	assert.Equal(t, []KeepLine{{Index: 2, Text: "Chapter 1"}}, info.KeepOriginal)
	assert.Equal(t, []string{"bạn thân"}, info.Relationships)
	assert.Equal(t, "cổ trang", info.Style)
}

func TestBuildRefinement(t *testing.T) {
	info := Info{
		Pronouns:     []session.PronounRule{{From: "An", To: "Binh", Value: "anh"}},
		KeepOriginal: []KeepLine{{Index: 3, Text: "***"}},
		Genre:        "Kiếm hiệp",
	}
	draft := "Character: An, text-to-refine: Chào anh."

	p := BuildRefinement(draft, info)

	assert.True(t, strings.HasPrefix(p, "Dưới đây là bản dịch của một văn bản."))
	assert.Contains(t, p, `- An: gọi Binh là "anh"`)
	assert.Contains(t, p, "Dòng 3: ***")
	assert.Contains(t, p, "- Phù hợp với thể loại: Kiếm hiệp")
	assert.NotContains(t, p, "Áp dụng văn phong")
	assert.NotContains(t, p, "MỐI QUAN HỆ")
	assert.Contains(t, p, "BẢN DỊCH CẦN TRAU CHUỐT:\n\n"+draft+"\n\n")
	assert.Contains(t, p, "KHÔNG đưa thông tin này vào kết quả cuối cùng")
	assert.Contains(t, p, "'Character: X, Expression: Y, text-to-refine: Z'")
}

func TestPrepareForRefinement(t *testing.T) {
	lines := []session.TextLine{
		{Text: "a", Character: "An", Expression: "Happy"},
		{Text: "b"},
	}

	got := PrepareForRefinement("Một\n\nHai\nBa", lines)

	want := "Character: An, Expression: Happy, text-to-refine: Một\n\ntext-to-refine: Hai\ntext-to-refine: Ba"
	assert.Equal(t, want, got)
}

func TestBuildAdditionalRefinement(t *testing.T) {
	lines := []session.TextLine{{Text: "x", Character: "Binh"}}

	p := BuildAdditionalRefinement("Chào em.", lines, Info{Style: "nhẹ nhàng"})

	assert.True(t, strings.HasPrefix(p, "Dưới đây là bản dịch đã được trau chuốt một lần."))
	assert.Contains(t, p, "BẢN DỊCH CẦN TRAU CHUỐT THÊM:\n\nCharacter: Binh, text-to-refine: Chào em.")
	assert.Contains(t, p, "- Áp dụng văn phong: nhẹ nhàng")
	assert.Contains(t, p, "Tạo cảm xúc phù hợp với ngữ cảnh")
}

func TestCountContentLines(t *testing.T) {
	assert.Equal(t, 2, CountContentLines("a\n\n  \nb\n"))
	assert.Equal(t, 0, CountContentLines(""))
}

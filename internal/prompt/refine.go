package prompt

import (
	"fmt"
	"strings"

	"github.com/valpere/dichai/internal/linecodec"
	"github.com/valpere/dichai/internal/session"
)

const refinementIntro = "Dưới đây là bản dịch của một văn bản. Hãy trau chuốt lại bản dịch này để có văn phong ổn hơn, " +
	"hay hơn, mượt như đối thoại ngoài đời, nhưng không được thêm bớt, phải đúng ý nghĩa câu văn và PHẢI GIỮ NGUYÊN XƯNG HÔ theo yêu cầu. " +
	"LƯU Ý: VIỆC GIỮ NGUYÊN XƯNG HÔ LÀ QUAN TRỌNG NHẤT, KHÔNG ĐƯỢC THAY ĐỔI DƯỚI BẤT KỲ HÌNH THỨC NÀO.\n\n"

const additionalRefinementIntro = "Dưới đây là bản dịch đã được trau chuốt một lần. Hãy tiếp tục trau chuốt thêm một lần nữa để có văn phong " +
	"tự nhiên hơn, mượt mà hơn như đối thoại ngoài đời, nhưng không được thêm bớt nội dung, phải đúng ý nghĩa câu văn và " +
	"TUYỆT ĐỐI PHẢI GIỮ NGUYÊN XƯNG HÔ theo yêu cầu. " +
	"LƯU Ý: VIỆC GIỮ NGUYÊN XƯNG HÔ LÀ QUAN TRỌNG NHẤT, KHÔNG ĐƯỢC THAY ĐỔI DƯỚI BẤT KỲ HÌNH THỨC NÀO.\n\n"

const refinePronounHeader = "XƯNG HÔ GIỮA CÁC NHÂN VẬT (PHẢI TUÂN THEO NGHIÊM NGẶT - ĐÂY LÀ YÊU CẦU QUAN TRỌNG NHẤT):"

// template is the skeleton shared by both refinement stages.
type template struct {
	intro        string
	requirements []string
	bodyHeader   string
}

var refinement = template{
	intro: refinementIntro,
	requirements: []string{
		"Trau chuốt văn phong để ổn hơn",
		"PHẢI GIỮ NGUYÊN TẤT CẢ XƯNG HÔ giữa các nhân vật như đã chỉ định ở trên - ĐÂY LÀ YÊU CẦU QUAN TRỌNG NHẤT",
	},
	bodyHeader: "BẢN DỊCH CẦN TRAU CHUỐT:",
}

var additionalRefinement = template{
	intro: additionalRefinementIntro,
	requirements: []string{
		"Nâng cao văn phong để tự nhiên hơn, dễ đọc hơn",
		"Tạo cảm xúc phù hợp với ngữ cảnh nhưng không làm thay đổi ý nghĩa",
		"TUYỆT ĐỐI GIỮ NGUYÊN TẤT CẢ XƯNG HÔ giữa các nhân vật như đã chỉ định ở trên",
	},
	bodyHeader: "BẢN DỊCH CẦN TRAU CHUỐT THÊM:",
}

// BuildRefinement composes the stage-2 prompt. draft is the stage-1 reply with
// markup removed and its verb markers already switched to the refine verb.
func BuildRefinement(draft string, info Info) string {
	return refinement.build(draft, info)
}

// BuildAdditionalRefinement composes a refine-again prompt. The current output
// is re-tagged line by line from lines; see PrepareForRefinement.
func BuildAdditionalRefinement(current string, lines []session.TextLine, info Info) string {
	return additionalRefinement.build(PrepareForRefinement(current, lines), info)
}

func (t template) build(body string, info Info) string {
	var sb strings.Builder
	format := formatExample(linecodec.Refine)

	sb.WriteString(t.intro)
	writePronouns(&sb, refinePronounHeader, info.Pronouns)

	if len(info.Relationships) > 0 {
		sb.WriteString("\nMỐI QUAN HỆ GIỮA CÁC NHÂN VẬT:\n")
		for _, r := range info.Relationships {
			sb.WriteString("- " + r + "\n")
		}
	}

	sb.WriteString("\nYÊU CẦU BẮT BUỘC PHẢI TUÂN THỦ:\n")
	for _, r := range t.requirements {
		sb.WriteString("- " + r + "\n")
	}
	sb.WriteString("- Giữ nguyên cấu trúc đoạn văn và phân đoạn\n")
	sb.WriteString("- Không sử dụng Markdown, trả về văn bản thuần túy\n")
	sb.WriteString("- Không thêm bất kỳ thông tin mới nào\n")
	sb.WriteString("- VÔ CÙNG QUAN TRỌNG: PHẢI GIỮ NGUYÊN định dạng đầu vào " + format +
		" ở mỗi dòng trong QUÁ TRÌNH trau chuốt, nhưng KHÔNG đưa thông tin này vào kết quả cuối cùng\n")
	if info.Style != "" {
		sb.WriteString("- Áp dụng văn phong: " + info.Style + "\n")
	}
	if info.Genre != "" {
		sb.WriteString("- Phù hợp với thể loại: " + info.Genre + "\n")
	}

	if len(info.KeepOriginal) > 0 {
		sb.WriteString("\nCÁC DÒNG VĂN BẢN CẦN GIỮ NGUYÊN (KHÔNG ĐƯỢC THAY ĐỔI):\n")
		for _, l := range info.KeepOriginal {
			fmt.Fprintf(&sb, "Dòng %d: %s\n", l.Index, l.Text)
		}
		sb.WriteString("Những dòng trên PHẢI được giữ nguyên trong bản dịch cuối cùng, KHÔNG ĐƯỢC DỊCH các dòng này.\n")
	}

	sb.WriteString("\n" + t.bodyHeader + "\n\n")
	sb.WriteString(body)

	sb.WriteString("\n\nCÁCH TRẢ LỜI YÊU CẦU: Sau khi trau chuốt, hãy chỉ trả về kết quả trau chuốt THEO ĐÚNG ĐỊNH DẠNG CHUẨN SAU:\n")
	sb.WriteString("1. Mỗi dòng phải bắt đầu với " + format + "\n")
	sb.WriteString("2. TUYỆT ĐỐI KHÔNG thêm mô tả, giải thích hoặc bất kỳ phần giới thiệu/kết luận nào\n")
	sb.WriteString("3. Không thêm bất kỳ định dạng Markdown nào\n")
	sb.WriteString("4. Trả về kết quả dưới dạng văn bản thuần (plain text)\n\n")

	sb.WriteString("NHẮC LẠI CÁC QUY TẮC TRAU CHUỐT (ĐỌC KỸ VÀ TUÂN THỦ):\n")
	sb.WriteString("1. PHẢI giữ nguyên cấu trúc đoạn văn và phân đoạn\n")
	sb.WriteString("2. PHẢI sử dụng CHÍNH XÁC xưng hô giữa các nhân vật như đã chỉ định ở trên - ĐÂY LÀ QUAN TRỌNG NHẤT\n")
	sb.WriteString("3. PHẢI giữ nguyên những dòng đã được chỉ định là '" + session.KeepOriginal + "'\n")
	sb.WriteString("4. PHẢI giữ nguyên định dạng " + format + " ở mỗi dòng trong kết quả trau chuốt\n")
	sb.WriteString("5. KHÔNG được thêm phần giới thiệu hoặc kết luận nào vào kết quả")

	return sb.String()
}

// PrepareForRefinement re-wraps each non-blank line of current with the
// refine verb. The n-th non-blank line takes the character and expression of
// the n-th session line; lines past the end of the session get the verb only.
// Blank lines are kept as they are.
func PrepareForRefinement(current string, lines []session.TextLine) string {
	rows := strings.Split(current, "\n")
	n := 0
	for i, row := range rows {
		if strings.TrimSpace(row) == "" {
			continue
		}
		if n < len(lines) {
			rows[i] = linecodec.EncodeTagged(lines[n].Character, lines[n].Expression, row, linecodec.Refine)
		} else {
			rows[i] = linecodec.Refine.Prefix() + row
		}
		n++
	}
	return strings.Join(rows, "\n")
}

// CountContentLines returns the number of non-blank lines in text.
func CountContentLines(text string) int {
	n := 0
	for _, row := range strings.Split(text, "\n") {
		if strings.TrimSpace(row) != "" {
			n++
		}
	}
	return n
}

package prompt

import (
	"strings"

	"github.com/valpere/dichai/internal/linecodec"
	"github.com/valpere/dichai/internal/session"
)

const translationIntro = "Bạn là một dịch giả chuyên nghiệp, đã có hơn 20 năm kinh nghiệm trong lĩnh vực dịch truyện, " +
	"giờ hãy dịch chương truyện sau sang tiếng việt. LƯU Ý QUAN TRỌNG: Bắt buộc PHẢI giữ nguyên tất cả xưng hô, " +
	"tuân thủ các yêu cầu và văn phong và các lưu ý quan trọng.\n\n"

const repetitionExamples = `
XỬ LÝ LỖI LẶP TỪ HOÀN TOÀN NHƯ SAU:

1. Nếu hai câu gần nhau bị lặp từ (ví dụ "ông ta"):
Thay thế từ bị lặp bằng đại từ phù hợp hoặc miêu tả gián tiếp
Ví dụ:
Sai (lặp từ):
Ông ta đang lảm nhảm điều gì vậy?
Ông ta điên rồi...

Đúng (loại bỏ lặp từ):

Ông ta đang lảm nhảm điều gì vậy?
Đúng là điên rồi...

2. Nếu một câu lặp một từ quá nhiều lần (ví dụ "tôi"):
Biến đổi cấu trúc câu hoặc thay thế từ bằng cách rút gọn hợp lý
Ví dụ:
Sai (lặp từ quá nhiều):
Tôi không muốn gia đình phát hiện ra việc tôi đang tìm kiếm Haru... ý tôi là... Nagi.

Đúng (loại bỏ lặp từ):

Tôi không muốn gia đình biết chuyện mình đang tìm kiếm Haru... ý là... Nagi.
`

// BuildTranslation composes the stage-1 prompt from a session snapshot.
func BuildTranslation(snap session.Snapshot) string {
	var sb strings.Builder
	format := formatExample(linecodec.Translate)

	sb.WriteString(translationIntro)
	writePronouns(&sb, "XƯNG HÔ GIỮA CÁC NHÂN VẬT (phải tuân theo nghiêm ngặt):", snap.Pronouns)

	if g := strings.TrimSpace(snap.Genre); g != "" {
		sb.WriteString("\nThể loại: " + g + "\n")
	}
	if s := strings.TrimSpace(snap.Style); s != "" {
		sb.WriteString("\nVăn phong: " + s + "\n")
	}

	sb.WriteString("\nMỐI QUAN HỆ GIỮA CÁC NHÂN VẬT:\n")
	for _, r := range relationshipTexts(snap.Relationships) {
		sb.WriteString("- " + r + "\n")
	}

	if c := strings.TrimSpace(snap.Context); c != "" {
		sb.WriteString("\nBỐI CẢNH:\n" + c + "\n")
	}

	sb.WriteString("\nYÊU CẦU BẮT BUỘC PHẢI TUÂN THỦ:\n")
	if req := strings.TrimSpace(snap.Requirements); req != "" {
		sb.WriteString("- " + req + "\n")
	}
	sb.WriteString("- PHẢI DỊCH CHÍNH XÁC, DỊCH TRÔI CHẢY, TỰ NHIÊN, TRÁNH LỖI LẶP TỪ HOÀN TOÀN, bao gồm:\n")
	sb.WriteString("* Kiểm tra kỹ từng câu để tránh sử dụng từ hoặc cụm từ giống nhau lặp lại không cần thiết.\n")
	sb.WriteString("* Sử dụng từ đồng nghĩa hợp lý để tránh trùng lặp trong những dòng gần nhau.\n")
	sb.WriteString("* Dùng đa dạng cấu trúc câu để tránh lặp về mặt ngữ pháp.\n")
	sb.WriteString("* Không được lặp từ giữa hai câu gần nhau.\n")
	sb.WriteString("* Không được lặp từ trong cùng một câu.\n")
	sb.WriteString("- Dịch chính xác, giữ nguyên tất cả xưng hô của các nhân vật như đã chỉ định ở trên\n")
	sb.WriteString("- Giữ nguyên cấu trúc đoạn văn và phân đoạn như văn bản gốc\n")
	sb.WriteString("- Không sử dụng Markdown, trả về văn bản thuần túy\n")
	sb.WriteString("- Phải đúng chính tả, không được nhầm sang ngôn ngữ khác\n")
	sb.WriteString("- Nếu một dòng có Expression là \"" + session.KeepOriginal + "\", KHÔNG DỊCH dòng đó, giữ nguyên văn bản gốc\n")
	sb.WriteString("- VÔ CÙNG QUAN TRỌNG: PHẢI GIỮ NGUYÊN các phần 'Character:' và 'Expression:' trong kết quả dịch CHÍNH XÁC như định dạng đầu vào: " + format + "\n")

	sb.WriteString(repetitionExamples)

	sb.WriteString("\nVĂN BẢN CẦN DỊCH:\n\n")
	if len(snap.Lines) > 0 {
		sb.WriteString(linecodec.EncodeLines(snap.Lines, linecodec.Translate))
		sb.WriteString("\n")
	}

	sb.WriteString("\n\nNHẮC LẠI CÁC YÊU CẦU QUAN TRỌNG (PHẢI TUÂN THỦ):\n")
	sb.WriteString("1. PHẢI giữ nguyên cấu trúc đoạn văn và phân đoạn\n")
	sb.WriteString("2. BẮT BUỘC PHẢI sử dụng chính xác xưng hô giữa các nhân vật như đã chỉ định ở trên. Tuyệt đối không thay đổi.\n")
	sb.WriteString("3. BẮT BUỘC PHẢI giữ nguyên những dòng có Expression là \"" + session.KeepOriginal + "\"\n")
	sb.WriteString("4. PHẢI GIỮ NGUYÊN định dạng đầu vào " + format + " ở mỗi dòng trong kết quả dịch\n")
	sb.WriteString("5. Dịch thật chính xác, mượt mà, đúng văn phong ở phần Yêu cầu, đúng cảm xúc, tránh lỗi lặp từ\n")

	return sb.String()
}

package prompt

import (
	"fmt"
	"strings"
	"time"

	"medig/internal/domain"
)

const chatPersona = `Bạn là MediG, một trợ lý AI y tế chuyên sâu. Nhiệm vụ của bạn là phân tích hồ sơ bệnh án được cung cấp và trả lời câu hỏi của các chuyên gia y tế.

**QUY TẮC QUAN TRỌNG:**
1.  **CỰC KỲ NGẮN GỌN:** Luôn luôn trả lời một cách súc tích và đi thẳng vào vấn đề. Tránh giải thích dài dòng, lặp lại thông tin không cần thiết.
2.  **THÔNG MINH & HỮU ÍCH:**
    *   Phân tích, tổng hợp và suy luận từ dữ liệu để đưa ra nhận định chuyên môn.
    *   Nếu thiếu dữ liệu, hãy chủ động đề xuất các thông tin cần thu thập thêm.
    *   Phát hiện và chỉ ra các điểm mâu thuẫn hoặc thiếu sót nếu có.

Hãy duy trì giọng văn chuyên nghiệp, hợp tác. Người dùng hiện đang xem một hồ sơ bệnh án %s. Đây là dữ liệu bệnh nhân ở định dạng JSON:

%s`

// BuildChatPrompt 系统说明 + 病历 + 全部对话，以 "Assistant:" 结尾
//
// 每次都完整重发历史，不做截断。
func BuildChatPrompt(rec domain.Record, v domain.Variant, history []domain.ChatMessage, now time.Time) (string, error) {
	if !v.Accepts(rec) {
		return "", fmt.Errorf("%w: %T as %s", ErrUnsupportedTask, rec, v)
	}
	ctx, err := SerializeRecord(rec, now)
	if err != nil {
		return "", err
	}
	turns := make([]string, 0, len(history))
	for _, m := range history {
		speaker := "Assistant"
		if m.Role == domain.RoleUser {
			speaker = "User"
		}
		turns = append(turns, speaker+": "+m.Text)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, chatPersona, v, ctx)
	sb.WriteString("\n\n")
	sb.WriteString(strings.Join(turns, "\n"))
	sb.WriteString("\n\nAssistant:")
	return sb.String(), nil
}

package domain

type ChatRole string

const (
	RoleUser  ChatRole = "user"
	RoleModel ChatRole = "model"
)

func (r ChatRole) Valid() bool {
	return r == RoleUser || r == RoleModel
}

// ChatMessage 一轮对话
type ChatMessage struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}

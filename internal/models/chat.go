package models

const (
	StoreChatPath = "chat"

	MaxChatMessageLength = 1000
)

// ChatMessage is a message in the global chat. The role flags are captured when the message is
// sent and are never revalidated.
type ChatMessage struct {
	ID           string `json:"id" mapstructure:"-"`
	UserID       string `json:"userId" mapstructure:"userId"`
	UserName     string `json:"userName" mapstructure:"userName"`
	UserEmail    string `json:"userEmail" mapstructure:"userEmail"`
	UserPhoto    string `json:"userPhoto" mapstructure:"userPhoto"`
	Text         string `json:"text" mapstructure:"text"`
	Timestamp    int64  `json:"timestamp" mapstructure:"timestamp"`
	IsAdmin      bool   `json:"isAdmin" mapstructure:"isAdmin"`
	IsSuperAdmin bool   `json:"isSuperAdmin" mapstructure:"isSuperAdmin"`
}

// SendChatMessageRequest is the parameter struct to the SendChatMessage function.
type SendChatMessageRequest struct {
	Text string `json:"text"`
	// Will be set from context
	Sender *Session `json:"-"`
}

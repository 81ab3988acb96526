package domain

import "time"

// MessageModel is the GORM model for the messages table.
// CreatedAt is filled by the database default, never by the application.
type MessageModel struct {
	ID        int64      `gorm:"primaryKey;autoIncrement"`
	Content   string     `gorm:"type:text;not null"`
	CreatedAt *time.Time `gorm:"type:timestamp;autoCreateTime:false;default:CURRENT_TIMESTAMP"`
}

// TableName specifies the table name for MessageModel.
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts MessageModel to domain Message.
func (m *MessageModel) ToDomain() Message {
	return Message{
		ID:        m.ID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

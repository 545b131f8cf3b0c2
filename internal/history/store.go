// Package history persists chat messages to SQLite and serves paged
// queries over them.
package history

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Message is one persisted chat line.
type Message struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Username    string    `gorm:"size:64;not null;index" json:"username"`
	Content     string    `gorm:"not null" json:"content"`
	Timestamp   string    `gorm:"size:16;not null" json:"timestamp"`
	MessageType string    `gorm:"size:16;not null;default:normal" json:"message_type"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName returns the table name for Message.
func (Message) TableName() string {
	return "chat_messages"
}

// Query describes optional filters for Recent.
type Query struct {
	Limit    int
	Offset   int
	Username string
	Keyword  string
}

// Store provides access to message storage.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the SQLite database at path and runs
// migrations.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open message database: %w", err)
	}
	if err := db.AutoMigrate(&Message{}); err != nil {
		return nil, fmt.Errorf("failed to migrate message database: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveMessage appends one chat line. An empty messageType is stored as
// "normal".
func (s *Store) SaveMessage(username, content, timestamp, messageType string) error {
	if messageType == "" {
		messageType = "normal"
	}
	msg := Message{
		Username:    username,
		Content:     content,
		Timestamp:   timestamp,
		MessageType: messageType,
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// Recent returns the page of messages selected by q in chronological
// order (oldest first within the page), plus the total number of rows
// matching the filters. Paging walks backwards from the newest message:
// offset 0 is the latest page.
func (s *Store) Recent(q Query) ([]Message, int64, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	tx := s.db.Model(&Message{})
	if q.Username != "" {
		tx = tx.Where("username = ?", q.Username)
	}
	if q.Keyword != "" {
		tx = tx.Where("content LIKE ?", "%"+q.Keyword+"%")
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	var msgs []Message
	if err := tx.Order("created_at DESC, id DESC").Limit(q.Limit).Offset(q.Offset).Find(&msgs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to query messages: %w", err)
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, total, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.Close()
}

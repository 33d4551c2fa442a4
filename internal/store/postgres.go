package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Postgres is the production backend. Every operation runs as its own
// statement or transaction; write failures surface to the caller, read
// failures degrade to absent with a warn log.
type Postgres struct {
	db  *gorm.DB
	log *slog.Logger
}

type PostgresOptions struct {
	DSN    string
	Logger *slog.Logger

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OpenPostgres connects, ensures the dedicated schema exists, and migrates
// the tracker tables.
func OpenPostgres(opts PostgresOptions) (*Postgres, error) {
	dsn := strings.TrimSpace(opts.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 5
	}
	maxIdle := opts.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 2
	}
	lifetime := opts.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = time.Hour
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(lifetime)

	if err := db.Exec("CREATE SCHEMA IF NOT EXISTS " + SchemaName).Error; err != nil {
		return nil, fmt.Errorf("ensure schema %s: %w", SchemaName, err)
	}
	if err := db.AutoMigrate(&ConversationRecord{}, &MessageFeedbackRecord{}); err != nil {
		return nil, fmt.Errorf("migrate tracker tables: %w", err)
	}
	logger.Info("store_postgres_ready", "schema", SchemaName)
	return &Postgres{db: db, log: logger}, nil
}

func (p *Postgres) GetConversation(ctx context.Context, threadTS string) (*ConversationRecord, error) {
	threadTS = strings.TrimSpace(threadTS)
	if threadTS == "" {
		return nil, nil
	}
	var rec ConversationRecord
	err := p.db.WithContext(ctx).First(&rec, "thread_ts = ?", threadTS).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		p.log.Warn("store_get_conversation_error", "thread_ts", threadTS, "error", err.Error())
		return nil, nil
	}
	return &rec, nil
}

func (p *Postgres) SetConversation(ctx context.Context, threadTS, roomID, roomName string) error {
	threadTS = strings.TrimSpace(threadTS)
	roomID = strings.TrimSpace(roomID)
	if threadTS == "" {
		return fmt.Errorf("thread_ts is required")
	}
	if roomID == "" {
		return fmt.Errorf("room_id is required")
	}
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec ConversationRecord
		err := tx.First(&rec, "thread_ts = ?", threadTS).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&ConversationRecord{
				ThreadTS: threadTS,
				RoomID:   roomID,
				RoomName: strings.TrimSpace(roomName),
			}).Error
		case err != nil:
			return err
		default:
			// Room fields overwrite; conversation_id survives the update.
			return tx.Model(&ConversationRecord{}).
				Where("thread_ts = ?", threadTS).
				Updates(map[string]any{
					"room_id":   roomID,
					"room_name": strings.TrimSpace(roomName),
				}).Error
		}
	})
}

func (p *Postgres) UpdateConversationID(ctx context.Context, threadTS, conversationID string) error {
	threadTS = strings.TrimSpace(threadTS)
	conversationID = strings.TrimSpace(conversationID)
	if threadTS == "" {
		return fmt.Errorf("thread_ts is required")
	}
	if conversationID == "" {
		return fmt.Errorf("conversation_id is required")
	}
	// Zero rows affected means the thread is unknown; that is not an error.
	return p.db.WithContext(ctx).Model(&ConversationRecord{}).
		Where("thread_ts = ?", threadTS).
		Update("conversation_id", conversationID).Error
}

func (p *Postgres) DeleteConversation(ctx context.Context, threadTS string) error {
	threadTS = strings.TrimSpace(threadTS)
	if threadTS == "" {
		return fmt.Errorf("thread_ts is required")
	}
	return p.db.WithContext(ctx).Delete(&ConversationRecord{}, "thread_ts = ?", threadTS).Error
}

func (p *Postgres) ClearAll(ctx context.Context) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&ConversationRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&MessageFeedbackRecord{}).Error
	})
}

func (p *Postgres) SetMessageFeedback(ctx context.Context, channelID, messageTS, roomID, conversationID, messageID string) error {
	key, err := newFeedbackKey(channelID, messageTS)
	if err != nil {
		return err
	}
	if strings.TrimSpace(messageID) == "" {
		return fmt.Errorf("message_id is required")
	}
	rec := MessageFeedbackRecord{
		ChannelID:      key.ChannelID,
		MessageTS:      key.MessageTS,
		RoomID:         strings.TrimSpace(roomID),
		ConversationID: strings.TrimSpace(conversationID),
		MessageID:      strings.TrimSpace(messageID),
	}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel_id"}, {Name: "message_ts"}},
		UpdateAll: true,
	}).Create(&rec).Error
}

func (p *Postgres) GetMessageFeedback(ctx context.Context, channelID, messageTS string) (*MessageFeedbackRecord, error) {
	key, err := newFeedbackKey(channelID, messageTS)
	if err != nil {
		return nil, nil
	}
	var rec MessageFeedbackRecord
	dbErr := p.db.WithContext(ctx).
		First(&rec, "channel_id = ? AND message_ts = ?", key.ChannelID, key.MessageTS).Error
	if errors.Is(dbErr, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if dbErr != nil {
		p.log.Warn("store_get_feedback_error", "channel_id", key.ChannelID, "message_ts", key.MessageTS, "error", dbErr.Error())
		return nil, nil
	}
	return &rec, nil
}

func (p *Postgres) DeleteMessageFeedback(ctx context.Context, channelID, messageTS string) error {
	key, err := newFeedbackKey(channelID, messageTS)
	if err != nil {
		return nil
	}
	return p.db.WithContext(ctx).
		Delete(&MessageFeedbackRecord{}, "channel_id = ? AND message_ts = ?", key.ChannelID, key.MessageTS).Error
}

var _ Store = (*Postgres)(nil)

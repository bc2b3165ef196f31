package store

import (
	"context"

	"github.com/uptrace/bun"

	"embedding-bench/internal/models"
)

func CreateSession(ctx context.Context, db *bun.DB, filename string) (*Session, error) {
	session := &Session{Filename: filename, Status: models.StatusUploaded}
	if _, err := db.NewInsert().Model(session).Exec(ctx); err != nil {
		return nil, err
	}
	return session, nil
}

func GetSession(ctx context.Context, db *bun.DB, id int64) (*Session, error) {
	session := new(Session)
	if err := db.NewSelect().Model(session).Where("s.id = ?", id).Scan(ctx); err != nil {
		return nil, err
	}
	return session, nil
}

func ListSessions(ctx context.Context, db *bun.DB) ([]Session, error) {
	var sessions []Session
	err := db.NewSelect().Model(&sessions).OrderExpr("s.id DESC").Scan(ctx)
	return sessions, err
}

func SetStatus(ctx context.Context, db *bun.DB, sessionID int64, status models.Status) error {
	_, err := db.NewUpdate().Model((*Session)(nil)).
		Set("status = ?", status).
		Where("id = ?", sessionID).
		Exec(ctx)
	return err
}

func SetTotalPages(ctx context.Context, db *bun.DB, sessionID int64, total int) error {
	_, err := db.NewUpdate().Model((*Session)(nil)).
		Set("total_pages = ?", total).
		Where("id = ?", sessionID).
		Exec(ctx)
	return err
}

// DeleteSession removes a session and every record derived from it.
func DeleteSession(ctx context.Context, db *bun.DB, sessionID int64) error {
	children := []any{
		(*OcrPage)(nil),
		(*Chunk)(nil),
		(*ChunkEmbedding)(nil),
		(*Question)(nil),
		(*AnswerRecord)(nil),
		(*WerResult)(nil),
	}
	for _, model := range children {
		if _, err := db.NewDelete().Model(model).Where("session_id = ?", sessionID).Exec(ctx); err != nil {
			return err
		}
	}
	_, err := db.NewDelete().Model((*Session)(nil)).Where("id = ?", sessionID).Exec(ctx)
	return err
}

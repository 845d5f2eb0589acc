package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/TAPV-Techworks/BudgetBee/internal/model"
	"github.com/TAPV-Techworks/BudgetBee/internal/repository"
)

var _ repository.FeedbackRepository = (*DB)(nil)

// CreateFeedback inserts a feedback row. CreatedAt is server-set here —
// clients never supply it. There is no update or single-row delete:
// feedback is immutable and leaves only via account deletion.
func (db *DB) CreateFeedback(ctx context.Context, fb *model.Feedback) error {
	fb.ID = xid.New().String()
	fb.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO feedback (id, user_id, message, created_at)
		 VALUES (?, ?, ?, ?)`,
		fb.ID,
		fb.UserID,
		fb.Message,
		fb.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting feedback: %w", err)
	}

	return nil
}

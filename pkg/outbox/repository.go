package outbox

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lensbook/lensbook-backend/pkg/db/models"
)

const maxLastErrorLen = 1024

var errNoTx = errors.New("outbox write needs a transaction")

// Repository reads and writes outbox_events.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errNoTx
	}
	return tx.Create(&event).Error
}

// FetchUnpublishedForPublish locks up to limit due rows, oldest first. Rows
// another publisher holds are skipped, as are rows still waiting out a retry
// delay or already at maxAttempts.
func (r *Repository) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if tx == nil {
		return nil, errNoTx
	}
	query := tx.Model(&models.OutboxEvent{}).
		Where("published_at IS NULL").
		Where("(next_attempt_at IS NULL OR next_attempt_at <= ?)", r.now().UTC())
	if maxAttempts > 0 {
		query = query.Where("attempt_count < ?", maxAttempts)
	}
	var rows []models.OutboxEvent
	err := query.
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate, Options: clause.LockingOptionsSkipLocked}).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	return r.update(tx, id, map[string]any{
		"published_at":    r.now().UTC(),
		"next_attempt_at": nil,
	})
}

// MarkFailedTx records a retryable failure and hides the row until retryAt.
func (r *Repository) MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error, retryAt time.Time) error {
	return r.update(tx, id, map[string]any{
		"last_error":      clipError(cause),
		"attempt_count":   gorm.Expr("attempt_count + 1"),
		"next_attempt_at": retryAt.UTC(),
	})
}

// MarkTerminalTx pins attempt_count at the ceiling so the row is never
// claimed again.
func (r *Repository) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error, terminalAttempts int) error {
	return r.update(tx, id, map[string]any{
		"last_error":      clipError(cause),
		"attempt_count":   terminalAttempts,
		"next_attempt_at": nil,
	})
}

// DeletePublishedBefore purges published rows older than cutoff. A nil tx
// runs on the repository handle.
func (r *Repository) DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	res := db.Where("published_at IS NOT NULL AND published_at < ?", cutoff.UTC()).
		Delete(&models.OutboxEvent{})
	return res.RowsAffected, res.Error
}

func (r *Repository) update(tx *gorm.DB, id uuid.UUID, cols map[string]any) error {
	if tx == nil {
		return errNoTx
	}
	return tx.Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(cols).Error
}

func clipError(err error) string {
	if err == nil {
		return ""
	}
	return clipUTF8(err.Error(), maxLastErrorLen)
}

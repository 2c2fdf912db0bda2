// Package postgres journals the challenge ledger to Postgres and hydrates it
// back at boot. Every mutation that changes a participant total also writes
// outbox rows in the same transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"example.com/fitchallenge/internal/domain"
	"example.com/fitchallenge/internal/ledger"
	"example.com/fitchallenge/internal/outbox"
	"example.com/fitchallenge/internal/period"
	"example.com/fitchallenge/internal/platform/events"
)

const uniqueViolation = "23505"

// Reasons carried on ParticipantTotalChanged events.
const (
	ReasonActivityRecorded = "activity_recorded"
	ReasonBonusAwarded     = "bonus_awarded"
	ReasonRecomputed       = "recomputed"
)

// Repository provides Postgres-backed persistence for the ledger.
type Repository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var (
	_ ledger.Journal = (*Repository)(nil)
	_ ledger.Loader  = (*Repository)(nil)
)

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{pool: pool, logger: logger}
}

// CreateParticipant inserts a participant row.
func (r *Repository) CreateParticipant(ctx context.Context, p domain.Participant) error {
	const stmt = `INSERT INTO participants (participant_id, employee_id, name, team, email, status, role, total_points, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

	_, err := r.pool.Exec(ctx, stmt,
		p.ID, p.EmployeeID, p.Name, p.Team, p.Email, string(p.Status), string(p.Role), p.TotalPoints, p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrParticipantExists
	}
	return err
}

// UpdateParticipant overwrites the participant's profile and total. A change
// of total emits a ParticipantTotalChanged event.
func (r *Repository) UpdateParticipant(ctx context.Context, p domain.Participant) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	var previous int
	err = tx.QueryRow(ctx, `SELECT total_points FROM participants WHERE participant_id = $1 FOR UPDATE`, p.ID).Scan(&previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrParticipantNotFound
	}
	if err != nil {
		return err
	}

	const stmt = `UPDATE participants
        SET employee_id = $2, name = $3, team = $4, email = $5, status = $6, role = $7, total_points = $8, updated_at = $9
        WHERE participant_id = $1`
	if _, err = tx.Exec(ctx, stmt,
		p.ID, p.EmployeeID, p.Name, p.Team, p.Email, string(p.Status), string(p.Role), p.TotalPoints, p.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrParticipantExists
		}
		return err
	}

	if previous != p.TotalPoints {
		if err = outbox.Enqueue(ctx, tx, totalChanged(p.ID, p.TotalPoints, ReasonRecomputed, p.UpdatedAt, "")); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// AppendActivity inserts a scored activity and stores the owner's new total.
func (r *Repository) AppendActivity(ctx context.Context, a domain.Activity, total int) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const insertActivity = `INSERT INTO activities (activity_id, participant_id, activity_date, workout_type, category_id, details, duration_minutes, steps_count, points, proof_ref, idempotency_key, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`

	if _, err = tx.Exec(ctx, insertActivity,
		a.ID,
		a.ParticipantID,
		a.Date,
		a.WorkoutType,
		a.CategoryID,
		a.Details,
		a.DurationMinutes,
		a.StepsCount,
		a.Points,
		a.ProofRef,
		nullIfEmpty(a.IdempotencyKey),
		a.CreatedAt,
	); err != nil {
		return err
	}

	if err = r.setTotal(ctx, tx, a.ParticipantID, total, a.CreatedAt); err != nil {
		return err
	}

	err = outbox.Enqueue(ctx, tx,
		outbox.Event{
			AggregateType: "activity",
			AggregateID:   a.ID,
			EventType:     events.ActivityRecordedType,
			PartitionKey:  a.ParticipantID,
			DedupeKey:     "activity:" + a.ID,
			Payload: events.ActivityRecorded{
				ActivityID:      a.ID,
				ParticipantID:   a.ParticipantID,
				Date:            period.FormatDay(a.Date),
				WorkoutType:     a.WorkoutType,
				CategoryID:      a.CategoryID,
				DurationMinutes: a.DurationMinutes,
				StepsCount:      a.StepsCount,
				Points:          a.Points,
				RecordedAt:      a.CreatedAt,
			},
		},
		totalChanged(a.ParticipantID, total, ReasonActivityRecorded, a.CreatedAt, "total:activity:"+a.ID),
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// AppendBonuses inserts a batch of weekly bonuses atomically.
func (r *Repository) AppendBonuses(ctx context.Context, bonuses []domain.WeeklyBonus, totals map[string]int) (err error) {
	if len(bonuses) == 0 {
		return nil
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const insertBonus = `INSERT INTO weekly_bonuses (bonus_id, participant_id, week_start, week_end, days_active, points, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	pending := make([]outbox.Event, 0, len(bonuses)+len(totals))
	awardedAt := bonuses[0].CreatedAt
	for _, b := range bonuses {
		if _, err = tx.Exec(ctx, insertBonus, b.ID, b.ParticipantID, b.WeekStart, b.WeekEnd, b.DaysActive, b.Points, b.CreatedAt); err != nil {
			if isUniqueViolation(err) {
				err = fmt.Errorf("bonus for %s week %s: %w", b.ParticipantID, period.FormatDay(b.WeekStart), domain.ErrNothingToAward)
			}
			return err
		}
		weekStart := period.FormatDay(b.WeekStart)
		pending = append(pending, outbox.Event{
			AggregateType: "participant",
			AggregateID:   b.ParticipantID,
			EventType:     events.BonusAwardedType,
			DedupeKey:     "bonus:" + b.ParticipantID + ":" + weekStart,
			Payload: events.BonusAwarded{
				BonusID:       b.ID,
				ParticipantID: b.ParticipantID,
				WeekStart:     weekStart,
				WeekEnd:       period.FormatDay(b.WeekEnd),
				DaysActive:    b.DaysActive,
				Points:        b.Points,
				AwardedAt:     b.CreatedAt,
			},
		})
	}

	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err = r.setTotal(ctx, tx, id, totals[id], awardedAt); err != nil {
			return err
		}
		pending = append(pending, totalChanged(id, totals[id], ReasonBonusAwarded, awardedAt, ""))
	}

	if err = outbox.Enqueue(ctx, tx, pending...); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SaveCategory upserts a rate-mode category.
func (r *Repository) SaveCategory(ctx context.Context, c domain.Category) error {
	const stmt = `INSERT INTO categories (category_id, name, points_per_minute, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (category_id) DO UPDATE
        SET name = EXCLUDED.name, points_per_minute = EXCLUDED.points_per_minute, updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, stmt, c.ID, c.Name, c.PointsPerMinute, c.CreatedAt, c.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.Invalid("name", "category %q already exists", c.Name)
	}
	return err
}

// DeleteCategory removes a category. Activities keep their category_id.
func (r *Repository) DeleteCategory(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE category_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

// Load reads the full ledger in a single repeatable-read snapshot.
func (r *Repository) Load(ctx context.Context) (ledger.Snapshot, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return ledger.Snapshot{}, err
	}
	defer tx.Rollback(ctx)

	var snap ledger.Snapshot

	rows, err := tx.Query(ctx, `SELECT participant_id, employee_id, name, team, email, status, role, total_points, created_at, updated_at
        FROM participants ORDER BY created_at, participant_id`)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	snap.Participants, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Participant, error) {
		var (
			p            domain.Participant
			status, role string
		)
		err := row.Scan(&p.ID, &p.EmployeeID, &p.Name, &p.Team, &p.Email, &status, &role, &p.TotalPoints, &p.CreatedAt, &p.UpdatedAt)
		p.Status = domain.ParticipantStatus(status)
		p.Role = domain.Role(role)
		return p, err
	})
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("load participants: %w", err)
	}

	rows, err = tx.Query(ctx, `SELECT activity_id, participant_id, activity_date, workout_type, category_id, details, duration_minutes, steps_count, points, proof_ref, COALESCE(idempotency_key, ''), created_at
        FROM activities ORDER BY created_at, activity_id`)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	snap.Activities, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Activity, error) {
		var a domain.Activity
		err := row.Scan(&a.ID, &a.ParticipantID, &a.Date, &a.WorkoutType, &a.CategoryID, &a.Details, &a.DurationMinutes, &a.StepsCount, &a.Points, &a.ProofRef, &a.IdempotencyKey, &a.CreatedAt)
		return a, err
	})
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("load activities: %w", err)
	}

	rows, err = tx.Query(ctx, `SELECT bonus_id, participant_id, week_start, week_end, days_active, points, created_at
        FROM weekly_bonuses ORDER BY created_at, bonus_id`)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	snap.Bonuses, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.WeeklyBonus, error) {
		var b domain.WeeklyBonus
		err := row.Scan(&b.ID, &b.ParticipantID, &b.WeekStart, &b.WeekEnd, &b.DaysActive, &b.Points, &b.CreatedAt)
		return b, err
	})
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("load bonuses: %w", err)
	}

	rows, err = tx.Query(ctx, `SELECT category_id, name, points_per_minute, created_at, updated_at FROM categories ORDER BY name`)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	snap.Categories, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Category, error) {
		var c domain.Category
		err := row.Scan(&c.ID, &c.Name, &c.PointsPerMinute, &c.CreatedAt, &c.UpdatedAt)
		return c, err
	})
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("load categories: %w", err)
	}

	r.logger.Info("ledger loaded",
		zap.Int("participants", len(snap.Participants)),
		zap.Int("activities", len(snap.Activities)),
		zap.Int("bonuses", len(snap.Bonuses)),
		zap.Int("categories", len(snap.Categories)),
	)
	return snap, nil
}

func (r *Repository) setTotal(ctx context.Context, tx pgx.Tx, participantID string, total int, at time.Time) error {
	tag, err := tx.Exec(ctx, `UPDATE participants SET total_points = $2, updated_at = $3 WHERE participant_id = $1`, participantID, total, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set total %s: %w", participantID, domain.ErrParticipantNotFound)
	}
	return nil
}

func totalChanged(participantID string, total int, reason string, at time.Time, dedupe string) outbox.Event {
	return outbox.Event{
		AggregateType: "participant",
		AggregateID:   participantID,
		EventType:     events.ParticipantTotalChangedType,
		DedupeKey:     dedupe,
		Payload: events.ParticipantTotalChanged{
			ParticipantID: participantID,
			TotalPoints:   total,
			Reason:        reason,
			OccurredAt:    at,
		},
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/simaogato/transferflow-backend/internal/domain"
)

const (
	triggerStateWaiting  = "WAITING"
	triggerStateAcquired = "ACQUIRED"
	triggerStateBlocked  = "BLOCKED" // row could not be decoded, never acquired again

	pqUniqueViolation = "23505"
)

// ErrClaimLost is returned by Release when another instance recovered the trigger
var ErrClaimLost = errors.New("trigger claim no longer held")

// jobStore implements domain.JobStore on top of the scheduled_jobs and job_triggers tables.
// Triggers are claimed with FOR UPDATE SKIP LOCKED so concurrent instances never
// acquire the same row.
type jobStore struct {
	db  *DB
	log zerolog.Logger
}

// NewJobStore creates a new Postgres-backed job store
func NewJobStore(db *DB, log zerolog.Logger) domain.JobStore {
	return &jobStore{db: db, log: log.With().Str("component", "job_store").Logger()}
}

// Save stores the job and its trigger in one database transaction
func (s *jobStore) Save(ctx context.Context, job *domain.ScheduledJob, trigger *domain.Trigger) error {
	cols, err := recurrenceColumnsOf(trigger.Recurrence)
	if err != nil {
		return err
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	insertJobQuery := `
		INSERT INTO scheduled_jobs (job_id, job_group, description, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = dbTx.ExecContext(ctx, insertJobQuery,
		job.ID,
		job.Group,
		job.Description,
		job.Payload,
		job.CreatedAt.UTC(),
	)
	if err != nil {
		return mapInsertError("job", err)
	}

	var endAt any
	if trigger.EndAt != nil {
		endAt = trigger.EndAt.UTC()
	}

	insertTriggerQuery := `
		INSERT INTO job_triggers (
			trigger_id, trigger_group, job_id, job_group, description, kind,
			start_at, end_at, time_zone, misfire,
			frequency, hour, minute, day_of_week, day_of_month,
			next_fire_at, state
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = dbTx.ExecContext(ctx, insertTriggerQuery,
		trigger.ID,
		trigger.Group,
		trigger.JobID,
		trigger.JobGroup,
		trigger.Description,
		string(trigger.Kind),
		trigger.StartAt.UTC(),
		endAt,
		trigger.TimeZone,
		string(trigger.Misfire),
		cols.frequency,
		cols.hour,
		cols.minute,
		cols.dayOfWeek,
		cols.dayOfMonth,
		trigger.NextFireAt.UTC(),
		triggerStateWaiting,
	)
	if err != nil {
		return mapInsertError("trigger", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// AcquireDue claims waiting triggers due at now, plus acquired triggers whose claim
// is older than staleAfter, and returns them with their job payloads.
func (s *jobStore) AcquireDue(ctx context.Context, instanceID string, now time.Time, limit int, staleAfter time.Duration) ([]domain.Fire, error) {
	query := `
		WITH due AS (
			SELECT trigger_id, trigger_group
			FROM job_triggers
			WHERE (state = $2 AND next_fire_at <= $4)
			   OR (state = $3 AND acquired_at < $5)
			ORDER BY next_fire_at ASC
			LIMIT $6
			FOR UPDATE SKIP LOCKED
		)
		UPDATE job_triggers t
		SET state = $3, acquired_by = $1, acquired_at = $4
		FROM due, scheduled_jobs j
		WHERE t.trigger_id = due.trigger_id
		  AND t.trigger_group = due.trigger_group
		  AND j.job_id = t.job_id
		  AND j.job_group = t.job_group
		RETURNING t.trigger_id, t.trigger_group, t.job_id, t.job_group, t.description, t.kind,
			t.start_at, t.end_at, t.time_zone, t.misfire,
			t.frequency, t.hour, t.minute, t.day_of_week, t.day_of_month,
			t.next_fire_at, t.acquired_at, j.payload
	`

	now = now.UTC()
	rows, err := s.db.QueryContext(ctx, query,
		instanceID,
		triggerStateWaiting,
		triggerStateAcquired,
		now,
		now.Add(-staleAfter),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire due triggers: %w", err)
	}
	defer rows.Close()

	var (
		fires   []domain.Fire
		blocked []triggerKey
	)
	for rows.Next() {
		var row acquiredRow
		scanErr := rows.Scan(
			&row.trig.ID,
			&row.trig.Group,
			&row.trig.JobID,
			&row.trig.JobGroup,
			&row.trig.Description,
			&row.kind,
			&row.trig.StartAt,
			&row.endAt,
			&row.trig.TimeZone,
			&row.misfire,
			&row.cols.frequency,
			&row.cols.hour,
			&row.cols.minute,
			&row.cols.dayOfWeek,
			&row.cols.dayOfMonth,
			&row.trig.NextFireAt,
			&row.acquiredAt,
			&row.payload,
		)
		if scanErr != nil && row.trig.ID == "" {
			return nil, fmt.Errorf("failed to scan acquired trigger: %w", scanErr)
		}

		fire, err := row.fire()
		if scanErr != nil {
			err = scanErr
		}
		if err != nil {
			s.log.Error().Err(err).
				Str("trigger_id", row.trig.ID).
				Str("trigger_group", row.trig.Group).
				Msg("unreadable trigger row, blocking it")
			blocked = append(blocked, triggerKey{id: row.trig.ID, group: row.trig.Group})
			continue
		}
		fires = append(fires, fire)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating acquired triggers: %w", err)
	}
	rows.Close()

	for _, key := range blocked {
		if err := s.block(ctx, key, instanceID, now); err != nil {
			s.log.Error().Err(err).
				Str("trigger_id", key.id).
				Str("trigger_group", key.group).
				Msg("failed to block trigger")
		}
	}

	return fires, nil
}

type triggerKey struct {
	id    string
	group string
}

// block parks a trigger this instance just claimed so it is never acquired again
func (s *jobStore) block(ctx context.Context, key triggerKey, instanceID string, acquiredAt time.Time) error {
	query := `
		UPDATE job_triggers
		SET state = $1, acquired_by = NULL, acquired_at = NULL
		WHERE trigger_id = $2 AND trigger_group = $3 AND state = $4 AND acquired_by = $5 AND acquired_at = $6
	`
	_, err := s.db.ExecContext(ctx, query,
		triggerStateBlocked,
		key.id,
		key.group,
		triggerStateAcquired,
		instanceID,
		acquiredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to block trigger %s/%s: %w", key.group, key.id, err)
	}
	return nil
}

// acquiredRow holds one row returned by AcquireDue before it becomes a domain.Fire
type acquiredRow struct {
	trig       domain.Trigger
	kind       string
	misfire    string
	endAt      sql.NullTime
	cols       recurrenceColumns
	acquiredAt time.Time
	payload    []byte
}

func (r acquiredRow) fire() (domain.Fire, error) {
	trig := r.trig
	trig.Kind = domain.TriggerKind(r.kind)
	trig.Misfire = domain.MisfirePolicy(r.misfire)
	trig.StartAt = trig.StartAt.UTC()
	trig.NextFireAt = trig.NextFireAt.UTC()
	if r.endAt.Valid {
		end := r.endAt.Time.UTC()
		trig.EndAt = &end
	}

	rec, err := r.cols.recurrence()
	if err != nil {
		return domain.Fire{}, fmt.Errorf("trigger %s/%s: %w", trig.Group, trig.ID, err)
	}
	trig.Recurrence = rec

	return domain.Fire{
		JobID:        trig.JobID,
		JobGroup:     trig.JobGroup,
		TriggerID:    trig.ID,
		TriggerGroup: trig.Group,
		Payload:      r.payload,
		ScheduledFor: trig.NextFireAt,
		AcquiredAt:   r.acquiredAt.UTC(),
		Trigger:      trig,
	}, nil
}

// Release hands the trigger back to WAITING at next, or deletes it and its job when
// next is nil. Only the claim recorded in fire.AcquiredAt is released.
func (s *jobStore) Release(ctx context.Context, fire domain.Fire, next *time.Time) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	var res sql.Result
	if next != nil {
		updateQuery := `
			UPDATE job_triggers
			SET state = $1, next_fire_at = $2, acquired_by = NULL, acquired_at = NULL
			WHERE trigger_id = $3 AND trigger_group = $4 AND state = $5 AND acquired_at = $6
		`
		res, err = dbTx.ExecContext(ctx, updateQuery,
			triggerStateWaiting,
			next.UTC(),
			fire.TriggerID,
			fire.TriggerGroup,
			triggerStateAcquired,
			fire.AcquiredAt,
		)
	} else {
		deleteTriggerQuery := `
			DELETE FROM job_triggers
			WHERE trigger_id = $1 AND trigger_group = $2 AND state = $3 AND acquired_at = $4
		`
		res, err = dbTx.ExecContext(ctx, deleteTriggerQuery,
			fire.TriggerID,
			fire.TriggerGroup,
			triggerStateAcquired,
			fire.AcquiredAt,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to release trigger: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s/%s", ErrClaimLost, fire.TriggerGroup, fire.TriggerID)
	}

	if next == nil {
		deleteJobQuery := `DELETE FROM scheduled_jobs WHERE job_id = $1 AND job_group = $2`
		if _, err := dbTx.ExecContext(ctx, deleteJobQuery, fire.JobID, fire.JobGroup); err != nil {
			return fmt.Errorf("failed to delete job: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func mapInsertError(what string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return fmt.Errorf("%w: %s: %s", domain.ErrDuplicateJob, what, pqErr.Message)
	}
	return fmt.Errorf("failed to insert %s: %w", what, err)
}

// recurrenceColumns is the nullable column form of a domain.Recurrence
type recurrenceColumns struct {
	frequency  sql.NullString
	hour       sql.NullInt32
	minute     sql.NullInt32
	dayOfWeek  sql.NullInt32
	dayOfMonth sql.NullInt32
}

func recurrenceColumnsOf(r domain.Recurrence) (recurrenceColumns, error) {
	var cols recurrenceColumns
	set := func(n *sql.NullInt32, v int) { *n = sql.NullInt32{Int32: int32(v), Valid: true} }

	switch rec := r.(type) {
	case nil:
		return cols, nil
	case domain.Daily:
		set(&cols.hour, rec.Hour)
		set(&cols.minute, rec.Minute)
	case domain.Weekly:
		set(&cols.hour, rec.Hour)
		set(&cols.minute, rec.Minute)
		set(&cols.dayOfWeek, rec.DayOfWeek)
	case domain.Monthly:
		set(&cols.hour, rec.Hour)
		set(&cols.minute, rec.Minute)
		set(&cols.dayOfMonth, rec.DayOfMonth)
	default:
		return cols, fmt.Errorf("unsupported recurrence %T", r)
	}
	cols.frequency = sql.NullString{String: string(r.Frequency()), Valid: true}
	return cols, nil
}

func (c recurrenceColumns) recurrence() (domain.Recurrence, error) {
	if !c.frequency.Valid {
		return nil, nil
	}
	return domain.NewRecurrence(
		domain.Frequency(c.frequency.String),
		int(c.hour.Int32),
		int(c.minute.Int32),
		int(c.dayOfWeek.Int32),
		int(c.dayOfMonth.Int32),
	)
}

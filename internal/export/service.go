package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/tetebueno/dawarich/internal/db"
	"github.com/tetebueno/dawarich/internal/logging"
	"github.com/tetebueno/dawarich/internal/metrics"
	"github.com/tetebueno/dawarich/internal/notification"
	"github.com/tetebueno/dawarich/internal/point"
	"github.com/tetebueno/dawarich/internal/storage"
)

var (
	ErrNotFound = errors.New("export not found")
	ErrNotReady = errors.New("export is not completed")
)

// PointSource fetches a user's points with startAt <= timestamp <= endAt.
type PointSource interface {
	InRange(ctx context.Context, userID string, startAt, endAt int64) ([]point.Point, error)
}

type UserLookup interface {
	Email(ctx context.Context, userID string) (string, error)
}

type Notifier interface {
	Create(ctx context.Context, userID string, kind notification.Kind, title, content string) (notification.Notification, error)
}

// Enqueuer hands an export id to whatever runs Process.
type Enqueuer interface {
	Enqueue(ctx context.Context, exportID string) error
}

type Service struct {
	db       db.Querier
	points   PointSource
	users    UserLookup
	notifier Notifier
	store    storage.Store
	queue    Enqueuer
	log      zerolog.Logger
}

func NewService(db db.Querier, points PointSource, users UserLookup, notifier Notifier, store storage.Store) *Service {
	return &Service{
		db:       db,
		points:   points,
		users:    users,
		notifier: notifier,
		store:    store,
		log:      logging.With().Str("component", "export").Logger(),
	}
}

func (s *Service) SetLogger(l zerolog.Logger) { s.log = l }

// SetQueue wires the job queue; without one Request generates inline.
func (s *Service) SetQueue(q Enqueuer) { s.queue = q }

// Name derives the export name from its UTC date range.
func Name(startAt, endAt int64) string {
	return fmt.Sprintf("export_from_%s_to_%s",
		time.Unix(startAt, 0).UTC().Format("2006-01-02"),
		time.Unix(endAt, 0).UTC().Format("2006-01-02"))
}

// Key is the storage key, and the url, of an export's file.
func Key(name string) string {
	return "exports/" + name + ".json"
}

// Request records a new export and schedules its generation. A record that
// cannot be scheduled is failed on the spot so it never stays in created.
func (s *Service) Request(ctx context.Context, userID string, startAt, endAt int64) (Export, error) {
	e := Export{
		ID:      uuid.NewString(),
		UserID:  userID,
		Name:    Name(startAt, endAt),
		Status:  StatusCreated,
		StartAt: startAt,
		EndAt:   endAt,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO exports (id, user_id, name, status, start_at, end_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at
	`, e.ID, e.UserID, e.Name, string(e.Status), e.StartAt, e.EndAt)
	if err := row.Scan(&e.CreatedAt, &e.UpdatedAt); err != nil {
		return Export{}, err
	}

	if s.queue == nil {
		return s.Generate(ctx, e, startAt, endAt), nil
	}
	if err := s.queue.Enqueue(ctx, e.ID); err != nil {
		// No job will ever pick this record up.
		return s.fail(ctx, e, fmt.Errorf("enqueue export: %w", err)), nil
	}
	return e, nil
}

// FailPending moves every export still in created to failed. Run it at
// startup when jobs live only in process memory, since those did not survive
// the restart.
func (s *Service) FailPending(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE exports SET status=$1, updated_at=now()
		WHERE status=$2
	`, string(StatusFailed), string(StatusCreated))
	if err != nil {
		return 0, err
	}
	if n := tag.RowsAffected(); n > 0 {
		s.log.Warn().Int64("exports", n).Msg("failed exports left pending by a previous run")
	}
	return tag.RowsAffected(), nil
}

// Process loads an export by id and generates it. Queue workers call this.
func (s *Service) Process(ctx context.Context, exportID string) error {
	e, err := s.scanExport(s.db.QueryRow(ctx, exportSelect+` WHERE id=$1`, exportID))
	if err != nil {
		return fmt.Errorf("load export %s: %w", exportID, err)
	}
	s.Generate(ctx, e, e.StartAt, e.EndAt)
	return nil
}

// Generate writes the export file and moves the record to completed. Any
// failure moves it to failed instead; errors are reported through the log and
// a notification, never returned. Calling it again re-queries and rewrites.
func (s *Service) Generate(ctx context.Context, e Export, startAt, endAt int64) Export {
	started := time.Now()

	count, err := s.write(ctx, e, startAt, endAt)
	if err == nil {
		e.Status = StatusCompleted
		e.URL = Key(e.Name)
		err = s.saveStatus(ctx, &e)
	}
	if err != nil {
		return s.fail(ctx, e, err)
	}

	metrics.ExportsTotal.WithLabelValues(string(StatusCompleted)).Inc()
	metrics.ExportDuration.Observe(time.Since(started).Seconds())
	metrics.ExportPoints.Observe(float64(count))
	s.log.Info().Str("export_id", e.ID).Str("user_id", e.UserID).Int("points", count).Msg("export completed")

	content := fmt.Sprintf("Export %q is ready with %s points.", e.Name, humanize.Comma(int64(count)))
	s.notify(ctx, e.UserID, notification.KindInfo, "Export finished", content)
	return e
}

func (s *Service) write(ctx context.Context, e Export, startAt, endAt int64) (int, error) {
	email, err := s.users.Email(ctx, e.UserID)
	if err != nil {
		return 0, fmt.Errorf("look up user: %w", err)
	}
	points, err := s.points.InRange(ctx, e.UserID, startAt, endAt)
	if err != nil {
		return 0, fmt.Errorf("query points: %w", err)
	}

	entries := make([]Entry, len(points))
	for i, p := range points {
		entries[i] = entryFromPoint(p)
	}
	data, err := json.Marshal(Document{email: {documentKey: entries}})
	if err != nil {
		return 0, fmt.Errorf("encode export: %w", err)
	}
	if err := s.store.Put(ctx, Key(e.Name), data, "application/json"); err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (s *Service) fail(ctx context.Context, e Export, cause error) Export {
	e.Status = StatusFailed
	e.URL = ""

	ev := s.log.Error().Err(cause).Str("export_id", e.ID).Str("user_id", e.UserID)
	if err := s.saveStatus(ctx, &e); err != nil {
		ev = ev.AnErr("status_error", err)
	}
	ev.Msg("export failed")

	metrics.ExportsTotal.WithLabelValues(string(StatusFailed)).Inc()
	s.notify(ctx, e.UserID, notification.KindError, "Export failed", cause.Error())
	return e
}

func (s *Service) notify(ctx context.Context, userID string, kind notification.Kind, title, content string) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Create(ctx, userID, kind, title, content); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("create notification")
	}
}

func (s *Service) saveStatus(ctx context.Context, e *Export) error {
	var url *string
	if e.URL != "" {
		url = &e.URL
	}
	row := s.db.QueryRow(ctx, `
		UPDATE exports SET status=$2, url=$3, updated_at=now()
		WHERE id=$1
		RETURNING updated_at
	`, e.ID, string(e.Status), url)
	return row.Scan(&e.UpdatedAt)
}

func (s *Service) List(ctx context.Context, userID string) ([]Export, error) {
	rows, err := s.db.Query(ctx, exportSelect+` WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Export
	for rows.Next() {
		e, err := s.scanExport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Service) Get(ctx context.Context, userID, id string) (Export, error) {
	e, err := s.scanExport(s.db.QueryRow(ctx, exportSelect+` WHERE id=$1 AND user_id=$2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Export{}, ErrNotFound
	}
	return e, err
}

// Open streams a completed export's file.
func (s *Service) Open(ctx context.Context, userID, id string) (io.ReadCloser, Export, error) {
	e, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, Export{}, err
	}
	if e.Status != StatusCompleted || e.URL == "" {
		return nil, e, ErrNotReady
	}
	rc, err := s.store.Open(ctx, e.URL)
	if err != nil {
		return nil, e, err
	}
	return rc, e, nil
}

// Delete removes the record and its file, if one was written.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	e, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if e.URL != "" {
		if err := s.store.Delete(ctx, e.URL); err != nil {
			return fmt.Errorf("delete export file: %w", err)
		}
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM exports WHERE id=$1 AND user_id=$2`, id, userID); err != nil {
		return err
	}
	return nil
}

const exportSelect = `
		SELECT id, user_id, name, status, COALESCE(url, ''), start_at, end_at, created_at, updated_at
		FROM exports`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Service) scanExport(row rowScanner) (Export, error) {
	var e Export
	var status string
	if err := row.Scan(&e.ID, &e.UserID, &e.Name, &status, &e.URL, &e.StartAt, &e.EndAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return Export{}, err
	}
	e.Status = Status(status)
	return e, nil
}

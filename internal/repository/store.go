package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "modernc.org/sqlite"

	apperrors "labanalyzer/internal/errors"
	"labanalyzer/pkg/contracts/domain"
)

// ErrExperimentNotFound is returned for an unknown experiment ID
var ErrExperimentNotFound = fmt.Errorf("experiment %w", apperrors.ErrNotFound)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// Options tunes the store
type Options struct {
	BusyRetries  int
	RetryBackoff time.Duration
}

// DefaultOptions returns the retry policy used when none is configured
func DefaultOptions() Options {
	return Options{BusyRetries: 3, RetryBackoff: 100 * time.Millisecond}
}

// NewExperiment describes an experiment to import
type NewExperiment struct {
	Name        string    `validate:"required,max=200"`
	Researcher  string    `validate:"required,max=200"`
	Description string    `validate:"max=2000"`
	StartedAt   time.Time `validate:"-"`
}

// Store is the SQLite experiment repository
type Store struct {
	db       *sql.DB
	logger   *slog.Logger
	opts     Options
	validate *validator.Validate
}

// Open opens (creating if needed) the database at path and applies the schema
func Open(ctx context.Context, path string, opts Options, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := path
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, apperrors.NewStorageError("create database directory", err)
		}
		dsn = "file:" + path
	}
	dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, apperrors.NewStorageError("open database", err)
	}
	// One writer at a time; also keeps an in-memory database on a single connection
	db.SetMaxOpenConns(1)

	s := &Store{
		db:       db,
		logger:   logger.With(slog.String("component", "repository")),
		opts:     opts,
		validate: validator.New(),
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, apperrors.NewStorageError("apply schema", err)
	}

	s.logger.Info("experiment database opened", slog.String("path", path))
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListExperiments returns every experiment ordered by ID
func (s *Store) ListExperiments(ctx context.Context) ([]domain.Experiment, error) {
	experiments, err := WithRetry(ctx, s.opts.BusyRetries, s.opts.RetryBackoff, func() ([]domain.Experiment, error) {
		rows, err := s.db.QueryContext(ctx,
			`SELECT id_experiment, experiment_name FROM experiments ORDER BY id_experiment`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		out := make([]domain.Experiment, 0)
		for rows.Next() {
			var e domain.Experiment
			if err := rows.Scan(&e.ID, &e.Name); err != nil {
				return nil, err
			}
			out = append(out, e)
		}
		return out, rows.Err()
	})
	if err != nil {
		return nil, apperrors.NewStorageError("list experiments", err)
	}

	s.logger.DebugContext(ctx, "experiments listed", slog.Int("count", len(experiments)))
	return experiments, nil
}

// GetExperimentInfo returns the descriptive fields of one experiment
func (s *Store) GetExperimentInfo(ctx context.Context, id int64) (*domain.ExperimentInfo, error) {
	info, err := WithRetry(ctx, s.opts.BusyRetries, s.opts.RetryBackoff, func() (*domain.ExperimentInfo, error) {
		var (
			info      domain.ExperimentInfo
			startedAt sql.NullInt64
		)
		err := s.db.QueryRowContext(ctx, selectExperimentInfo, id).
			Scan(&info.ID, &info.Name, &info.Description, &info.Researcher, &startedAt)
		if err != nil {
			return nil, err
		}
		if startedAt.Valid {
			info.StartedAt = time.Unix(startedAt.Int64, 0).UTC()
		}
		return &info, nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrExperimentNotFound, id)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("get experiment info", err).WithContext("experiment_id", id)
	}
	return info, nil
}

// LoadMeasurements returns the measurements of an experiment ordered by
// compound, time and replicate. A known experiment without measurements
// yields an empty slice.
func (s *Store) LoadMeasurements(ctx context.Context, id int64) ([]domain.Measurement, error) {
	if _, err := s.GetExperimentInfo(ctx, id); err != nil {
		return nil, err
	}

	rows, err := WithRetry(ctx, s.opts.BusyRetries, s.opts.RetryBackoff, func() ([]domain.Measurement, error) {
		return s.queryMeasurements(ctx, id)
	})
	if err != nil {
		return nil, apperrors.NewStorageError("load measurements", err).WithContext("experiment_id", id)
	}

	if len(rows) == 0 {
		s.logger.WarnContext(ctx, "experiment has no measurements", slog.Int64("experiment_id", id))
	} else {
		s.logger.InfoContext(ctx, "measurements loaded",
			slog.Int64("experiment_id", id),
			slog.Int("rows", len(rows)))
	}
	return rows, nil
}

func (s *Store) queryMeasurements(ctx context.Context, id int64) ([]domain.Measurement, error) {
	rows, err := s.db.QueryContext(ctx, selectMeasurements, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Measurement, 0)
	for rows.Next() {
		var (
			m           domain.Measurement
			od, ph, tmp sql.NullFloat64
		)
		if err := rows.Scan(&m.ExperimentName, &m.Researcher, &m.CompoundName,
			&m.TimeHours, &od, &ph, &tmp, &m.ReplicateNumber); err != nil {
			return nil, err
		}
		m.OpticalDensity = nullToNaN(od)
		m.PH = nullToNaN(ph)
		m.TemperatureCelsius = nullToNaN(tmp)
		out = append(out, m)
	}
	return out, rows.Err()
}

// ImportExperiment stores a new experiment with its measurements in one
// transaction and returns its ID. Researchers and compounds are reused by name.
func (s *Store) ImportExperiment(ctx context.Context, exp NewExperiment, rows []domain.Measurement) (int64, error) {
	exp.Name = strings.TrimSpace(exp.Name)
	exp.Researcher = strings.TrimSpace(exp.Researcher)
	if err := s.validate.Struct(exp); err != nil {
		return 0, apperrors.NewAppValidationError(fmt.Sprintf("invalid experiment: %v", err))
	}
	for i := range rows {
		if err := s.validate.Struct(rows[i]); err != nil {
			return 0, apperrors.NewAppValidationError(fmt.Sprintf("invalid measurement %d: %v", i+1, err))
		}
	}

	id, err := WithRetry(ctx, s.opts.BusyRetries, s.opts.RetryBackoff, func() (int64, error) {
		return s.importTx(ctx, exp, rows)
	})
	if err != nil {
		return 0, apperrors.NewStorageError("import experiment", err).WithContext("experiment", exp.Name)
	}

	s.logger.InfoContext(ctx, "experiment imported",
		slog.Int64("experiment_id", id),
		slog.String("experiment", exp.Name),
		slog.Int("rows", len(rows)))
	return id, nil
}

func (s *Store) importTx(ctx context.Context, exp NewExperiment, rows []domain.Measurement) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	researcherID, err := upsertName(ctx, tx, "researchers", "id_researcher", "full_name", exp.Researcher)
	if err != nil {
		return 0, err
	}

	var startedAt sql.NullInt64
	if !exp.StartedAt.IsZero() {
		startedAt = sql.NullInt64{Int64: exp.StartedAt.Unix(), Valid: true}
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO experiments (experiment_name, description, id_researcher, started_at) VALUES (?, ?, ?, ?)`,
		exp.Name, exp.Description, researcherID, startedAt)
	if err != nil {
		return 0, err
	}
	if id, err = res.LastInsertId(); err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO measurements (id_experiment, compound_id, time_hours, od_value, ph_value, temperature_celsius, replicate_number)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	compoundIDs := make(map[string]int64)
	for _, m := range rows {
		compoundID, ok := compoundIDs[m.CompoundName]
		if !ok {
			if compoundID, err = upsertName(ctx, tx, "compounds", "compound_id", "compound_name", m.CompoundName); err != nil {
				return 0, err
			}
			compoundIDs[m.CompoundName] = compoundID
		}

		if _, err = stmt.ExecContext(ctx, id, compoundID, m.TimeHours,
			nanToNull(m.OpticalDensity), nanToNull(m.PH), nanToNull(m.TemperatureCelsius),
			m.ReplicateNumber); err != nil {
			return 0, err
		}
	}

	return id, tx.Commit()
}

// upsertName returns the ID of the row whose column equals name, inserting it when absent
func upsertName(ctx context.Context, tx *sql.Tx, table, idColumn, column, name string) (int64, error) {
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?) ON CONFLICT(%s) DO NOTHING`, table, column, column), name); err != nil {
		return 0, err
	}
	var id int64
	err := tx.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ?`, idColumn, table, column), name).Scan(&id)
	return id, err
}

func nullToNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func nanToNull(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

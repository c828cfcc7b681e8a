package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/target/mmk-content-dashboard/internal/core"
	"github.com/target/mmk-content-dashboard/internal/data/pgxutil"
	"github.com/target/mmk-content-dashboard/internal/domain/model"
	apperrors "github.com/target/mmk-content-dashboard/internal/errors"
)

const (
	settingsColumns = "version, settings, comment, author, created_at"

	settingsLatestQuery = `SELECT ` + settingsColumns + `
		FROM settings_versions ORDER BY version DESC LIMIT 1`

	settingsGetQuery = `SELECT ` + settingsColumns + `
		FROM settings_versions WHERE version = $1`

	settingsListQuery = `SELECT ` + settingsColumns + `
		FROM settings_versions ORDER BY version DESC LIMIT $1`

	settingsNextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM settings_versions`

	settingsInsertQuery = `INSERT INTO settings_versions (version, settings, comment, author, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + settingsColumns

	settingsPruneQuery = `DELETE FROM settings_versions
		WHERE version NOT IN (SELECT version FROM settings_versions ORDER BY version DESC LIMIT $1)`
)

// settingsRow mirrors a settings_versions row; settings is raw JSONB.
type settingsRow struct {
	Version   int       `db:"version"`
	Settings  []byte    `db:"settings"`
	Comment   string    `db:"comment"`
	Author    string    `db:"author"`
	CreatedAt time.Time `db:"created_at"`
}

func (r settingsRow) toModel() (*model.SettingsVersion, error) {
	v := &model.SettingsVersion{
		Version:   r.Version,
		Comment:   r.Comment,
		Author:    r.Author,
		CreatedAt: r.CreatedAt,
	}
	if err := json.Unmarshal(r.Settings, &v.Settings); err != nil {
		return nil, fmt.Errorf("decode settings version %d: %w", r.Version, err)
	}
	return v, nil
}

// SettingsRepo is a Postgres-backed settings history.
type SettingsRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ core.SettingsRepository = (*SettingsRepo)(nil)

// NewSettingsRepo creates a new SettingsRepo.
func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewSettingsRepoWithTimeProvider creates a SettingsRepo with a custom clock (useful for tests).
func NewSettingsRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *SettingsRepo {
	return &SettingsRepo{DB: db, timeProvider: tp}
}

// Latest returns the newest settings version.
func (r *SettingsRepo) Latest(ctx context.Context) (*model.SettingsVersion, error) {
	v, err := r.queryOne(ctx, settingsLatestQuery)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NotFound("no settings have been saved")
		}
		return nil, err
	}
	return v, nil
}

// Get returns one settings version.
func (r *SettingsRepo) Get(ctx context.Context, version int) (*model.SettingsVersion, error) {
	if version <= 0 {
		return nil, apperrors.ValidationField("version", "version must be positive")
	}
	v, err := r.queryOne(ctx, settingsGetQuery, version)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NotFoundf("settings version %d not found", version)
		}
		return nil, err
	}
	return v, nil
}

// List returns up to limit versions, newest first.
func (r *SettingsRepo) List(ctx context.Context, limit int) ([]*model.SettingsVersion, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []settingsRow
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		pgRows, err := conn.Query(ctx, settingsListQuery, limit)
		if err != nil {
			return err
		}
		defer pgRows.Close()
		rows, err = pgx.CollectRows(pgRows, pgx.RowToStructByName[settingsRow])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list settings versions: %w", apperrors.MapDBError(err))
	}

	out := make([]*model.SettingsVersion, 0, len(rows))
	for _, row := range rows {
		v, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Append inserts v. A zero Version is assigned the next free version inside
// the same transaction; an explicit Version that already exists is a Conflict.
func (r *SettingsRepo) Append(ctx context.Context, v *model.SettingsVersion) (*model.SettingsVersion, error) {
	if v == nil {
		return nil, apperrors.Validation("settings version is required")
	}
	if err := v.Settings.Validate(); err != nil {
		return nil, apperrors.ValidationField("settings", err.Error())
	}
	payload, err := json.Marshal(v.Settings)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	createdAt := v.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.timeProvider.Now()
	}

	var row settingsRow
	err = pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{Isolation: sql.LevelSerializable},
		Fn: func(tx pgx.Tx) error {
			version := v.Version
			if version == 0 {
				if qerr := tx.QueryRow(ctx, settingsNextVersionQuery).Scan(&version); qerr != nil {
					return qerr
				}
			}
			rows, qerr := tx.Query(ctx, settingsInsertQuery, version, payload, v.Comment, v.Author, createdAt)
			if qerr != nil {
				return qerr
			}
			row, qerr = pgx.CollectOneRow(rows, pgx.RowToStructByName[settingsRow])
			return qerr
		},
	})
	if err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsConflict(mapped) {
			return nil, apperrors.Wrapf(err, apperrors.ErrCodeConflict, "settings version %d already exists", v.Version)
		}
		return nil, fmt.Errorf("failed to append settings version: %w", mapped)
	}
	return row.toModel()
}

// Prune deletes all but the newest keep versions.
func (r *SettingsRepo) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		return 0, apperrors.ValidationField("keep", "keep must be at least 1")
	}
	res, err := r.DB.ExecContext(ctx, settingsPruneQuery, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune settings versions: %w", apperrors.MapDBError(err))
	}
	return res.RowsAffected()
}

func (r *SettingsRepo) queryOne(ctx context.Context, query string, args ...any) (*model.SettingsVersion, error) {
	var row settingsRow
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[settingsRow])
		return err
	}); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return row.toModel()
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/formpilot/formpilot/internal/config"
	"github.com/formpilot/formpilot/internal/models"
)

// PostgresStore implements Store on top of Postgres via the pgx stdlib
// driver. Form fields, metadata and tags are stored as jsonb columns.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(ctx context.Context, cfg *config.Config) (*PostgresStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("store configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(pingCtx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Users

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, first_name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
	`
	_, err := s.db.ExecContext(ctx, q, user.ID, user.FirstName, user.Email, user.PasswordHash)
	return err
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, first_name, email, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := s.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.FirstName, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Forms

func (s *PostgresStore) CreateForm(ctx context.Context, form *models.Form) error {
	if form == nil {
		return errors.New("nil form")
	}
	fields, metadata, tags, err := marshalFormJSON(form)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO forms
			(id, user_id, name, type, size, original_name, mime_type, storage_key,
			 preview_url, preview_key, fields, metadata, is_favorite, tags, status,
			 error, version, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, now(), now())
	`
	_, err = s.db.ExecContext(ctx, q,
		form.ID, form.UserID, form.Name, form.Type, form.Size, form.OriginalName,
		form.MimeType, form.StorageKey, form.PreviewURL, form.PreviewKey,
		fields, metadata, form.IsFavorite, tags, form.Status, form.Error, form.Version)
	return err
}

const formColumns = `
	id, user_id, name, type, size, original_name, mime_type, storage_key,
	preview_url, preview_key, fields, metadata, is_favorite, tags, status,
	error, version, created_at, updated_at
`

func (s *PostgresStore) GetFormByID(ctx context.Context, id string) (*models.Form, error) {
	q := `SELECT ` + formColumns + ` FROM forms WHERE id = $1`
	f, err := scanForm(s.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *PostgresStore) ListFormsByUser(ctx context.Context, userID string) ([]models.Form, error) {
	q := `SELECT ` + formColumns + ` FROM forms WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Form
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateForm(ctx context.Context, form *models.Form) error {
	if form == nil {
		return errors.New("nil form")
	}
	fields, metadata, tags, err := marshalFormJSON(form)
	if err != nil {
		return err
	}
	const q = `
		UPDATE forms
		SET name = $2, fields = $3, metadata = $4, tags = $5, status = $6,
		    error = $7, preview_url = $8, preview_key = $9,
		    version = version + 1, updated_at = now()
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, q,
		form.ID, form.Name, fields, metadata, tags, form.Status, form.Error,
		form.PreviewURL, form.PreviewKey)
	if err != nil {
		return err
	}
	return ensureAffected(res, form.ID)
}

func (s *PostgresStore) UpdateFormStatus(ctx context.Context, id, status, errMsg string) error {
	const q = `
		UPDATE forms
		SET status = $2, error = $3, updated_at = now()
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, q, id, status, errMsg)
	if err != nil {
		return err
	}
	return ensureAffected(res, id)
}

func (s *PostgresStore) DeleteForm(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM forms WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return ensureAffected(res, id)
}

func (s *PostgresStore) SetFavorite(ctx context.Context, id string, favorite bool) error {
	const q = `UPDATE forms SET is_favorite = $2, updated_at = now() WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q, id, favorite)
	if err != nil {
		return err
	}
	return ensureAffected(res, id)
}

// Profiles

func (s *PostgresStore) CreateProfile(ctx context.Context, profile *models.AutofillProfile) error {
	if profile == nil {
		return errors.New("nil profile")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO profiles (id, user_id, name, type, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
	`
	if _, err := tx.ExecContext(ctx, q,
		profile.ID, profile.UserID, profile.Name, profile.Type, profile.Description); err != nil {
		_ = tx.Rollback()
		return err
	}

	const qf = `INSERT INTO profile_fields (id, profile_id, name, value) VALUES ($1, $2, $3, $4)`
	for i := range profile.Fields {
		pf := &profile.Fields[i]
		if _, err := tx.ExecContext(ctx, qf, pf.ID, profile.ID, pf.Name, pf.Value); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) GetProfileByID(ctx context.Context, id string) (*models.AutofillProfile, error) {
	const q = `
		SELECT id, user_id, name, type, description, created_at, updated_at
		FROM profiles WHERE id = $1
	`
	var p models.AutofillProfile
	err := s.db.QueryRowContext(ctx, q, id).Scan(
		&p.ID, &p.UserID, &p.Name, &p.Type, &p.Description, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	fields, err := s.profileFields(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Fields = fields
	return &p, nil
}

func (s *PostgresStore) ListProfilesByUser(ctx context.Context, userID string) ([]models.AutofillProfile, error) {
	const q = `
		SELECT id, user_id, name, type, description, created_at, updated_at
		FROM profiles WHERE user_id = $1 ORDER BY name ASC
	`
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AutofillProfile
	for rows.Next() {
		var p models.AutofillProfile
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Type, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		fields, err := s.profileFields(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Fields = fields
	}
	return out, nil
}

// UpdateProfile updates the profile row and upserts its fields in one
// transaction. Fields with an ID are updated in place, new fields inserted.
func (s *PostgresStore) UpdateProfile(ctx context.Context, profile *models.AutofillProfile) error {
	if profile == nil {
		return errors.New("nil profile")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	const q = `
		UPDATE profiles
		SET name = $2, type = $3, description = $4, updated_at = now()
		WHERE id = $1
	`
	res, err := tx.ExecContext(ctx, q, profile.ID, profile.Name, profile.Type, profile.Description)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := ensureAffected(res, profile.ID); err != nil {
		_ = tx.Rollback()
		return err
	}

	const upsert = `
		INSERT INTO profile_fields (id, profile_id, name, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, value = EXCLUDED.value
	`
	for i := range profile.Fields {
		pf := &profile.Fields[i]
		if _, err := tx.ExecContext(ctx, upsert, pf.ID, profile.ID, pf.Name, pf.Value); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) DeleteProfile(ctx context.Context, id string) error {
	// profile_fields cascade via foreign key.
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return ensureAffected(res, id)
}

func (s *PostgresStore) profileFields(ctx context.Context, profileID string) ([]models.ProfileField, error) {
	const q = `SELECT id, profile_id, name, value FROM profile_fields WHERE profile_id = $1 ORDER BY name ASC`
	rows, err := s.db.QueryContext(ctx, q, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ProfileField
	for rows.Next() {
		var pf models.ProfileField
		if err := rows.Scan(&pf.ID, &pf.ProfileID, &pf.Name, &pf.Value); err != nil {
			return nil, err
		}
		out = append(out, pf)
	}
	return out, rows.Err()
}

// Messages

func (s *PostgresStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg == nil {
		return errors.New("nil message")
	}
	const q = `
		INSERT INTO messages (id, user_id, sender, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, q, msg.ID, msg.UserID, msg.Sender, msg.Content, msg.CreatedAt)
	return err
}

func (s *PostgresStore) ListMessages(ctx context.Context) ([]models.Message, error) {
	const q = `
		SELECT id, user_id, sender, content, created_at
		FROM messages ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.Sender, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteMessage(ctx context.Context, id, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	return ensureAffected(res, id)
}

// helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanForm(row rowScanner) (*models.Form, error) {
	var (
		f        models.Form
		fields   []byte
		metadata []byte
		tags     []byte
	)
	err := row.Scan(
		&f.ID, &f.UserID, &f.Name, &f.Type, &f.Size, &f.OriginalName, &f.MimeType,
		&f.StorageKey, &f.PreviewURL, &f.PreviewKey, &fields, &metadata,
		&f.IsFavorite, &tags, &f.Status, &f.Error, &f.Version, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &f.Fields); err != nil {
			return nil, fmt.Errorf("decode fields for form %s: %w", f.ID, err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &f.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for form %s: %w", f.ID, err)
		}
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &f.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for form %s: %w", f.ID, err)
		}
	}
	return &f, nil
}

func marshalFormJSON(form *models.Form) (fields, metadata, tags []byte, err error) {
	if form.Fields == nil {
		form.Fields = []models.FormField{}
	}
	if form.Tags == nil {
		form.Tags = []string{}
	}
	if fields, err = json.Marshal(form.Fields); err != nil {
		return nil, nil, nil, fmt.Errorf("encode fields: %w", err)
	}
	if metadata, err = json.Marshal(form.Metadata); err != nil {
		return nil, nil, nil, fmt.Errorf("encode metadata: %w", err)
	}
	if tags, err = json.Marshal(form.Tags); err != nil {
		return nil, nil, nil, fmt.Errorf("encode tags: %w", err)
	}
	return fields, metadata, tags, nil
}

func ensureAffected(res sql.Result, id string) error {
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("not found: %s", id)
	}
	return nil
}

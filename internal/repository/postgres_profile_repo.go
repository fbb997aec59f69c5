package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/campuspoint/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByStudentID は指定学籍番号のプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByStudentID(ctx context.Context, studentID string) (*model.Profile, error) {
	profile := &model.Profile{}
	var avatarURL sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, student_id, first_name, last_name, program, birthdate, avatar_url, created_at, updated_at
		 FROM profiles
		 WHERE student_id = $1`,
		studentID,
	).Scan(&profile.ID, &profile.StudentID, &profile.FirstName, &profile.LastName,
		&profile.Program, &profile.Birthdate, &avatarURL, &profile.CreatedAt, &profile.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	profile.AvatarURL = avatarURL.String

	return profile, nil
}

// Update は可変フィールド（氏名・プログラム・生年月日）を上書きする。
func (r *PostgresProfileRepo) Update(ctx context.Context, profile *model.Profile) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles
		 SET first_name = $1, last_name = $2, program = $3, birthdate = $4, updated_at = $5
		 WHERE student_id = $6`,
		profile.FirstName, profile.LastName, profile.Program, profile.Birthdate,
		time.Now(), profile.StudentID,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("profile not found: %s", profile.StudentID)
	}

	return nil
}

// UpdateAvatarURL はアバター参照のみを更新する。
func (r *PostgresProfileRepo) UpdateAvatarURL(ctx context.Context, studentID, avatarURL string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles
		 SET avatar_url = $1, updated_at = $2
		 WHERE student_id = $3`,
		avatarURL, time.Now(), studentID,
	)
	if err != nil {
		return fmt.Errorf("failed to update avatar url: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("profile not found: %s", studentID)
	}

	return nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)

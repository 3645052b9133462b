package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/pkg/database"
)

const userColumns = "id, role, account_number, email, first_name, middle_name, last_name, gender, date_of_birth, phone, address, department_id, course_id, year_level_id, section_id, face_enrolled, password_hash, created_at, updated_at"

const insertUserQuery = `INSERT INTO user_accounts (id, role, account_number, email, first_name, middle_name, last_name, gender, date_of_birth, phone, address, department_id, course_id, year_level_id, section_id, face_enrolled, password_hash, created_at, updated_at)
VALUES (:id, :role, :account_number, :email, :first_name, :middle_name, :last_name, :gender, :date_of_birth, :phone, :address, :department_id, :course_id, :year_level_id, :section_id, :face_enrolled, :password_hash, :created_at, :updated_at)`

// UserRepository provides database access for role-partitioned user accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// List returns profiles matching the filter with a total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.UserProfile, int, error) {
	base := "FROM user_accounts WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Role != "" {
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)+1))
		args = append(args, filter.Role)
	}
	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.SectionID != "" {
		conditions = append(conditions, fmt.Sprintf("section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d OR LOWER(email) LIKE $%d OR account_number LIKE $%d)", len(args)+1, len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	order := sortClause(filter.SortBy, filter.SortOrder, "last_name", map[string]bool{
		"last_name":      true,
		"first_name":     true,
		"email":          true,
		"account_number": true,
		"created_at":     true,
	})
	limit, offset := page(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s %s ORDER BY %s LIMIT %d OFFSET %d", userColumns, base, order, limit, offset)

	var users []models.UserProfile
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	for i := range users {
		users[i].Locate()
	}
	return users, total, nil
}

// FindByID returns a profile of the given role.
func (r *UserRepository) FindByID(ctx context.Context, role models.UserRole, id string) (*models.UserProfile, error) {
	query := fmt.Sprintf("SELECT %s FROM user_accounts WHERE role = $1 AND id = $2", userColumns)
	var user models.UserProfile
	if err := r.db.GetContext(ctx, &user, query, role, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	user.Locate()
	return &user, nil
}

// FindAnyByID returns a profile regardless of role.
func (r *UserRepository) FindAnyByID(ctx context.Context, id string) (*models.UserProfile, error) {
	query := fmt.Sprintf("SELECT %s FROM user_accounts WHERE id = $1", userColumns)
	var user models.UserProfile
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	user.Locate()
	return &user, nil
}

// ExistsByEmail checks whether an email is taken, ignoring case.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	query := "SELECT 1 FROM user_accounts WHERE LOWER(email) = LOWER($1)"
	args := []interface{}{email}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	found, err := exists(ctx, r.db, query, args...)
	if err != nil {
		return false, fmt.Errorf("check email uniqueness: %w", err)
	}
	return found, nil
}

// ExistingAccountNumbers returns which of the candidate numbers are already assigned.
func (r *UserRepository) ExistingAccountNumbers(ctx context.Context, candidates []string) (map[string]bool, error) {
	taken := make(map[string]bool)
	if len(candidates) == 0 {
		return taken, nil
	}
	query, args, err := sqlx.In("SELECT account_number FROM user_accounts WHERE account_number IN (?)", candidates)
	if err != nil {
		return nil, fmt.Errorf("build account number query: %w", err)
	}
	var found []string
	if err := r.db.SelectContext(ctx, &found, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("check account numbers: %w", err)
	}
	for _, n := range found {
		taken[n] = true
	}
	return taken, nil
}

// Create inserts a profile.
func (r *UserRepository) Create(ctx context.Context, user *models.UserProfile) error {
	prepareUser(user, time.Now().UTC())
	if _, err := r.db.NamedExecContext(ctx, insertUserQuery, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	user.Locate()
	return nil
}

// CreateBatch inserts profiles in one transaction; either all rows land or none do.
func (r *UserRepository) CreateBatch(ctx context.Context, users []*models.UserProfile) error {
	now := time.Now().UTC()
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, user := range users {
			prepareUser(user, now)
			if _, err := tx.NamedExecContext(ctx, insertUserQuery, user); err != nil {
				return fmt.Errorf("create user %s: %w", user.AccountNumber, err)
			}
			user.Locate()
		}
		return nil
	})
}

func prepareUser(user *models.UserProfile, now time.Time) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = now
	user.UpdatedAt = now
}

// Update writes personal and assignment fields.
func (r *UserRepository) Update(ctx context.Context, user *models.UserProfile) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE user_accounts SET email = :email, first_name = :first_name, middle_name = :middle_name, last_name = :last_name, gender = :gender, date_of_birth = :date_of_birth,
phone = :phone, address = :address, department_id = :department_id, course_id = :course_id, year_level_id = :year_level_id, section_id = :section_id, updated_at = :updated_at WHERE id = :id AND role = :role`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	user.Locate()
	return nil
}

// SetFaceEnrolled flags a profile once its face registration succeeded.
func (r *UserRepository) SetFaceEnrolled(ctx context.Context, id string, enrolled bool) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE user_accounts SET face_enrolled = $1, updated_at = $2 WHERE id = $3`, enrolled, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set face enrolled: %w", err)
	}
	return nil
}

// Delete removes a profile of the given role.
func (r *UserRepository) Delete(ctx context.Context, role models.UserRole, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_accounts WHERE role = $1 AND id = $2`, role, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountOpenRequests returns requests that still reference the user.
func (r *UserRepository) CountOpenRequests(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM requests WHERE from_user_id = $1 OR to_program_head_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count user requests: %w", err)
	}
	return count, nil
}

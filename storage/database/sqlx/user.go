package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mzalendo/daftari/core"
	"github.com/mzalendo/daftari/core/user"
)

const uniqueViolation = "23505"

type userRow struct {
	ID           string      `db:"id"`
	Username     string      `db:"username"`
	Email        string      `db:"email"`
	FullName     string      `db:"full_name"`
	Role         string      `db:"role"`
	IsActive     bool        `db:"is_active"`
	IsVerified   bool        `db:"is_verified"`
	GroupID      null.String `db:"group_id"`
	PasswordHash []byte      `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

type userRepository struct {
	db core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DBExecutor) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) toRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Username:     usr.Username,
		Email:        usr.Email,
		FullName:     usr.FullName,
		Role:         usr.Role,
		IsActive:     usr.IsActive,
		IsVerified:   usr.IsVerified,
		GroupID:      null.NewString(usr.GroupID, usr.GroupID != ""),
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) fromRow(row userRow) user.User {
	return user.User{
		ID:           row.ID,
		Username:     row.Username,
		Email:        row.Email,
		FullName:     row.FullName,
		Role:         row.Role,
		IsActive:     row.IsActive,
		IsVerified:   row.IsVerified,
		GroupID:      row.GroupID.String,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		LastLogin:    row.LastLogin.Time,
	}
}

func (repo userRepository) fromRows(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.fromRow(row))
	}
	return users
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	query := `SELECT username, email FROM "user" WHERE (username = ? OR email = ?)`
	args := []interface{}{username, email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		inQuery, inArgs, err := sqlx.In(` AND id NOT IN (?)`, ids)
		if err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		query += inQuery
		args = append(args, inArgs...)
	}

	var match struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	err := repo.db.GetContext(ctx, &match, repo.db.Rebind(query), args...)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if match.Username == username {
		return user.ErrUsernameExists
	}
	return user.ErrEmailExists
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	row := repo.toRow(usr)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO "user" (id, username, email, full_name, role, is_active, is_verified, group_id, password_hash, created_at, updated_at, last_login)
		VALUES (:id, :username, :email, :full_name, :role, :is_active, :is_verified, :group_id, :password_hash, :created_at, :updated_at, :last_login)`,
		row,
	)
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
			if strings.Contains(pqErr.Constraint, "email") {
				return user.User{}, user.ErrEmailExists
			}
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	query := `SELECT * FROM "user"`
	var clauses []string
	var args []interface{}

	// users with FullName, Username or Email matching the search keyword
	if filter.Search != "" {
		clauses = append(clauses, `(full_name ILIKE ? OR username ILIKE ? OR email ILIKE ?)`)
		val := "%" + filter.Search + "%"
		args = append(args, val, val, val)
	}
	if filter.Role != "" {
		clauses = append(clauses, `role = ?`)
		args = append(args, filter.Role)
	}
	if filter.IsActive != nil {
		clauses = append(clauses, `is_active = ?`)
		args = append(args, *filter.IsActive)
	}
	if filter.IsVerified != nil {
		clauses = append(clauses, `is_verified = ?`)
		args = append(args, *filter.IsVerified)
	}
	if filter.GroupID != "" {
		clauses = append(clauses, `group_id = ?`)
		args = append(args, filter.GroupID)
	}
	if !filter.CreatedFrom.IsZero() {
		clauses = append(clauses, `created_at >= ?`)
		args = append(args, filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		clauses = append(clauses, `created_at <= ?`)
		args = append(args, filter.CreatedTo.UTC())
	}
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, ` AND `)
	}

	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		query += ` ORDER BY ` + strings.Join(orderList, ", ")
	} else {
		query += ` ORDER BY created_at`
	}

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return repo.fromRows(rows), nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	var row userRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "user" WHERE id = $1`, id); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by ID")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "user" WHERE username = $1`, username); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by username")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "user" WHERE email = $1`, email); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by email")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM "user" WHERE username = $1 OR email = $1`, username)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) CountUsersByRole(ctx context.Context, role string) (int, error) {
	var count int
	if err := repo.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM "user" WHERE role = $1`, role); err != nil {
		return 0, errors.Wrap(err, "counting users")
	}
	return count, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, isActive, isVerified *bool) (user.User, error) {
	// only save set fields
	sets := []string{`updated_at = ?`}
	args := []interface{}{usr.UpdatedAt.UTC()}

	if usr.Username != "" {
		sets = append(sets, `username = ?`)
		args = append(args, usr.Username)
	}
	if usr.Email != "" {
		sets = append(sets, `email = ?`)
		args = append(args, usr.Email)
	}
	if usr.FullName != "" {
		sets = append(sets, `full_name = ?`)
		args = append(args, usr.FullName)
	}
	if usr.Role != "" {
		sets = append(sets, `role = ?`)
		args = append(args, usr.Role)
	}
	if usr.GroupID != "" {
		sets = append(sets, `group_id = ?`)
		args = append(args, usr.GroupID)
	}
	if usr.PasswordHash != nil {
		sets = append(sets, `password_hash = ?`)
		args = append(args, usr.PasswordHash)
	}
	if !usr.LastLogin.IsZero() {
		sets = append(sets, `last_login = ?`)
		args = append(args, usr.LastLogin.UTC())
	}
	if isActive != nil {
		sets = append(sets, `is_active = ?`)
		args = append(args, *isActive)
	}
	if isVerified != nil {
		sets = append(sets, `is_verified = ?`)
		args = append(args, *isVerified)
	}
	args = append(args, usr.ID)

	query := repo.db.Rebind(`UPDATE "user" SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
			if strings.Contains(pqErr.Constraint, "email") {
				return user.User{}, user.ErrEmailExists
			}
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	query, args, err := sqlx.In(`DELETE FROM "user" WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting users")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}

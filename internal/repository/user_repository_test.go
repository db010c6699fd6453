package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Riya-Avasthi/GatePass-For-Faculty/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func userRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "role", "employee_id", "designation", "department", "created_at", "updated_at"}).
		AddRow("u1", "Amit Sharma", "sharma.amit@kbtcoe.org", "hash", string(models.RoleFaculty), "EMP-101", "Assistant Professor", "Computer", now, now)
}

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, email, password_hash, role, employee_id, designation, department, created_at, updated_at FROM users WHERE email = $1 LIMIT 1")).
		WithArgs("sharma.amit@kbtcoe.org").
		WillReturnRows(userRows(time.Now()))

	user, err := repo.FindByEmail(context.Background(), "sharma.amit@kbtcoe.org")
	require.NoError(t, err)
	assert.Equal(t, "sharma.amit@kbtcoe.org", user.Email)
	assert.Equal(t, models.RoleFaculty, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByEmailNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT .+ FROM users WHERE email").
		WithArgs("missing.user@kbtcoe.org").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "missing.user@kbtcoe.org")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByEmployeeID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, email, password_hash, role, employee_id, designation, department, created_at, updated_at FROM users WHERE employee_id = $1 LIMIT 1")).
		WithArgs("EMP-101").
		WillReturnRows(userRows(time.Now()))

	user, err := repo.FindByEmployeeID(context.Background(), "EMP-101")
	require.NoError(t, err)
	assert.Equal(t, "EMP-101", user.EmployeeID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{
		Name:         "Amit Sharma",
		Email:        "sharma.amit@kbtcoe.org",
		PasswordHash: "hash",
		Role:         models.RoleFaculty,
		EmployeeID:   "EMP-101",
		Designation:  "Assistant Professor",
		Department:   "Computer",
	}
	err := repo.Create(context.Background(), user)
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	userID := "u1"
	err := repo.CreateAuditLog(context.Background(), &models.AuditLog{
		UserID:   &userID,
		Action:   models.AuditActionLogin,
		Resource: "auth",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-catalog-service/internal/domain"
)

func TestPostgresStore_CreateUser(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	userToCreate := &domain.User{
		Username:     "admin_a1b2c3d4",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		IsAdmin:      true,
	}
	expectedID := int64(1)

	query := regexp.QuoteMeta(`
		INSERT INTO catalog.users (username, password_hash, is_admin)
		VALUES ($1, $2, $3)
		RETURNING id, username, password_hash, is_admin, created_at;
	`)

	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "is_admin", "created_at"}).
		AddRow(expectedID, userToCreate.Username, userToCreate.PasswordHash, userToCreate.IsAdmin, now)

	mock.ExpectQuery(query).
		WithArgs(userToCreate.Username, userToCreate.PasswordHash, userToCreate.IsAdmin).
		WillReturnRows(rows)

	createdUser, err := store.CreateUser(context.Background(), userToCreate)

	require.NoError(t, err)
	require.NotNil(t, createdUser)
	assert.Equal(t, expectedID, createdUser.ID)
	assert.Equal(t, userToCreate.Username, createdUser.Username)
	assert.True(t, createdUser.IsAdmin)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateUser_UsernameExists(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	userToCreate := &domain.User{
		Username:     "admin_a1b2c3d4",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		IsAdmin:      true,
	}

	query := regexp.QuoteMeta(`
		INSERT INTO catalog.users (username, password_hash, is_admin)
		VALUES ($1, $2, $3)
		RETURNING id, username, password_hash, is_admin, created_at;
	`)

	pqErr := &pq.Error{Code: "23505", Constraint: "users_username_key"}
	mock.ExpectQuery(query).
		WithArgs(userToCreate.Username, userToCreate.PasswordHash, userToCreate.IsAdmin).
		WillReturnError(pqErr)

	createdUser, err := store.CreateUser(context.Background(), userToCreate)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUsernameExists), "Error should be ErrUsernameExists")
	assert.Nil(t, createdUser)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetUserByUsername_Found(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	username := "admin_a1b2c3d4"

	query := regexp.QuoteMeta(`
		SELECT id, username, password_hash, is_admin, created_at
		FROM catalog.users
		WHERE username = $1;
	`)

	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "is_admin", "created_at"}).
		AddRow(int64(1), username, "$2a$10$abcdefghijklmnopqrstuv", true, now)

	mock.ExpectQuery(query).WithArgs(username).WillReturnRows(rows)

	user, err := store.GetUserByUsername(context.Background(), username)

	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, username, user.Username)
	assert.NotEmpty(t, user.PasswordHash)
	assert.True(t, user.IsAdmin)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetUserByUsername_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	username := "nobody"

	query := regexp.QuoteMeta(`
		SELECT id, username, password_hash, is_admin, created_at
		FROM catalog.users
		WHERE username = $1;
	`)

	mock.ExpectQuery(query).WithArgs(username).WillReturnError(sql.ErrNoRows)

	user, err := store.GetUserByUsername(context.Background(), username)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUserNotFound), "Error should be ErrUserNotFound")
	assert.Nil(t, user)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UsernameExists(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	query := regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM catalog.users WHERE username = $1);`)

	mock.ExpectQuery(query).
		WithArgs("admin_a1b2c3d4").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(query).
		WithArgs("admin_ffffffff").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := store.UsernameExists(context.Background(), "admin_a1b2c3d4")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.UsernameExists(context.Background(), "admin_ffffffff")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, mock.ExpectationsWereMet())
}

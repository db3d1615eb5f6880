package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracktime-io/tracktime/internal/models"
)

func TestSQLTokenRepository_Find(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLTokenRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "ticket_system_id", "access_token", "token_secret",
		"avoid_connection", "create_time", "change_time",
	}).AddRow(1, 7, 2, "enc-token", "enc-secret", false, now, now)

	mock.ExpectQuery("SELECT (.+) FROM users_ticketsystems WHERE user_id = (.+) AND ticket_system_id = ").
		WithArgs(7, 2).
		WillReturnRows(rows)

	token, err := repo.Find(7, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, token.ID)
	assert.Equal(t, "enc-token", token.AccessToken)
	assert.False(t, token.AvoidConnection)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLTokenRepository_FindNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLTokenRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM users_ticketsystems").
		WithArgs(7, 2).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "ticket_system_id", "access_token", "token_secret",
			"avoid_connection", "create_time", "change_time",
		}))

	_, err = repo.Find(7, 2)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLTokenRepository_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLTokenRepository(db)

	mock.ExpectQuery("INSERT INTO users_ticketsystems (.+) ON CONFLICT \\(user_id, ticket_system_id\\) DO UPDATE SET (.+) RETURNING id").
		WithArgs(7, 2, "enc-token", "enc-secret", true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

	token := &models.UserTicketToken{
		UserID:          7,
		TicketSystemID:  2,
		AccessToken:     "enc-token",
		TokenSecret:     "enc-secret",
		AvoidConnection: true,
	}

	require.NoError(t, repo.Upsert(token))
	assert.Equal(t, 5, token.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLTokenRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLTokenRepository(db)

	mock.ExpectExec("DELETE FROM users_ticketsystems WHERE user_id = (.+) AND ticket_system_id = ").
		WithArgs(7, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(7, 2))

	// Deleting an absent row is still not an error.
	mock.ExpectExec("DELETE FROM users_ticketsystems").
		WithArgs(7, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(7, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLTokenRepository_ListUserIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLTokenRepository(db)

	mock.ExpectQuery("SELECT user_id FROM users_ticketsystems WHERE ticket_system_id = (.+) AND avoid_connection = false").
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(3).AddRow(7))

	ids, err := repo.ListUserIDs(2)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 7}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLTokenRepository_ListByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLTokenRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "ticket_system_id", "access_token", "token_secret",
		"avoid_connection", "create_time", "change_time",
	}).
		AddRow(1, 7, 1, "t1", "s1", false, now, now).
		AddRow(2, 7, 2, "t2", "s2", true, now, now)

	mock.ExpectQuery("SELECT (.+) FROM users_ticketsystems WHERE user_id = (.+) ORDER BY ticket_system_id").
		WithArgs(7).
		WillReturnRows(rows)

	tokens, err := repo.ListByUser(7)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, 1, tokens[0].TicketSystemID)
	assert.True(t, tokens[1].AvoidConnection)
	assert.NoError(t, mock.ExpectationsWereMet())
}

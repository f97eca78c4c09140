package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupService_Resolve(t *testing.T) {
	cacheKey := "lookup:" + testWorkshop + ":FT-0042"
	failedKey := "lookup:failed:" + testWorkshop

	t.Run("cache hit skips database", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		rdb, redisMock := redismock.NewClientMock()

		redisMock.ExpectGet(failedKey).RedisNil()
		redisMock.ExpectGet(cacheKey).SetVal(testTicket)

		s := NewLookupService(db, rdb)
		ticketID, err := s.Resolve(context.Background(), "FT-0042", testWorkshop)
		require.NoError(t, err)
		assert.Equal(t, testTicket, ticketID)
		assert.NoError(t, dbMock.ExpectationsWereMet())
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("cache miss reads database and caches", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		rdb, redisMock := redismock.NewClientMock()

		redisMock.ExpectGet(failedKey).RedisNil()
		redisMock.ExpectGet(cacheKey).RedisNil()
		dbMock.ExpectQuery("SELECT id FROM tickets").
			WithArgs("FT-0042", testWorkshop).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(testTicket))
		redisMock.ExpectSet(cacheKey, testTicket, 5*time.Minute).SetVal("OK")

		s := NewLookupService(db, rdb)
		ticketID, err := s.Resolve(context.Background(), "FT-0042", testWorkshop)
		require.NoError(t, err)
		assert.Equal(t, testTicket, ticketID)
		assert.NoError(t, dbMock.ExpectationsWereMet())
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("unknown code counts toward the rate limit", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		rdb, redisMock := redismock.NewClientMock()

		redisMock.ExpectGet(failedKey).RedisNil()
		redisMock.ExpectGet("lookup:" + testWorkshop + ":FT-9999").RedisNil()
		dbMock.ExpectQuery("SELECT id FROM tickets").
			WithArgs("FT-9999", testWorkshop).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		redisMock.ExpectIncr(failedKey).SetVal(1)
		redisMock.ExpectExpire(failedKey, 15*time.Minute).SetVal(true)

		s := NewLookupService(db, rdb)
		_, err = s.Resolve(context.Background(), "FT-9999", testWorkshop)
		require.Error(t, err)
		assert.Equal(t, CodeNotFound, ErrCode(err))
		assert.NoError(t, dbMock.ExpectationsWereMet())
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("workshop over the failed-lookup limit is throttled", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		rdb, redisMock := redismock.NewClientMock()

		redisMock.ExpectGet(failedKey).SetVal("20")

		s := NewLookupService(db, rdb)
		_, err = s.Resolve(context.Background(), "FT-0042", testWorkshop)
		require.Error(t, err)
		assert.Equal(t, CodeBusy, ErrCode(err))
		assert.NoError(t, dbMock.ExpectationsWereMet())
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("works without redis", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		dbMock.ExpectQuery("SELECT id FROM tickets").
			WithArgs("FT-0042", testWorkshop).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(testTicket))

		s := NewLookupService(db, nil)
		ticketID, err := s.Resolve(context.Background(), "FT-0042", testWorkshop)
		require.NoError(t, err)
		assert.Equal(t, testTicket, ticketID)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("empty code is not found", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		s := NewLookupService(db, nil)
		_, err = s.Resolve(context.Background(), "", testWorkshop)
		require.Error(t, err)
		assert.Equal(t, CodeNotFound, ErrCode(err))
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})
}

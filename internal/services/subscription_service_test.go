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

func TestSubscriptionService_Require(t *testing.T) {
	fixedNow := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	newService := func(t *testing.T) (*SubscriptionService, sqlmock.Sqlmock) {
		t.Helper()
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })

		s := NewSubscriptionService(db, nil)
		s.now = func() time.Time { return fixedNow }
		return s, mock
	}

	subRows := func(startsAt, endsAt time.Time, paid bool) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"workshop_id", "starts_at", "ends_at", "paid"}).
			AddRow(testWorkshop, startsAt, endsAt, paid)
	}

	t.Run("active paid window", func(t *testing.T) {
		s, mock := newService(t)
		mock.ExpectQuery("SELECT workshop_id, starts_at, ends_at, paid").
			WithArgs(testWorkshop).
			WillReturnRows(subRows(fixedNow.AddDate(0, -1, 0), fixedNow.AddDate(0, 1, 0), true))

		assert.NoError(t, s.Require(context.Background(), testWorkshop))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("expired window", func(t *testing.T) {
		s, mock := newService(t)
		mock.ExpectQuery("SELECT workshop_id, starts_at, ends_at, paid").
			WithArgs(testWorkshop).
			WillReturnRows(subRows(fixedNow.AddDate(0, -2, 0), fixedNow.AddDate(0, -1, 0), true))

		err := s.Require(context.Background(), testWorkshop)
		require.Error(t, err)
		assert.Equal(t, CodeForbidden, ErrCode(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("window not started yet", func(t *testing.T) {
		s, mock := newService(t)
		mock.ExpectQuery("SELECT workshop_id, starts_at, ends_at, paid").
			WithArgs(testWorkshop).
			WillReturnRows(subRows(fixedNow.AddDate(0, 1, 0), fixedNow.AddDate(0, 2, 0), true))

		err := s.Require(context.Background(), testWorkshop)
		require.Error(t, err)
		assert.Equal(t, CodeForbidden, ErrCode(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unpaid subscription is inactive", func(t *testing.T) {
		s, mock := newService(t)
		mock.ExpectQuery("SELECT workshop_id, starts_at, ends_at, paid").
			WithArgs(testWorkshop).
			WillReturnRows(subRows(fixedNow.AddDate(0, -1, 0), fixedNow.AddDate(0, 1, 0), false))

		err := s.Require(context.Background(), testWorkshop)
		require.Error(t, err)
		assert.Equal(t, CodeForbidden, ErrCode(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no subscription at all", func(t *testing.T) {
		s, mock := newService(t)
		mock.ExpectQuery("SELECT workshop_id, starts_at, ends_at, paid").
			WithArgs(testWorkshop).
			WillReturnRows(sqlmock.NewRows([]string{"workshop_id", "starts_at", "ends_at", "paid"}))

		err := s.Require(context.Background(), testWorkshop)
		require.Error(t, err)
		assert.Equal(t, CodeForbidden, ErrCode(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cached answer skips database", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		rdb, redisMock := redismock.NewClientMock()

		redisMock.ExpectGet("sub:active:" + testWorkshop).SetVal("1")

		s := NewSubscriptionService(db, rdb)
		assert.NoError(t, s.Require(context.Background(), testWorkshop))
		assert.NoError(t, dbMock.ExpectationsWereMet())
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("database answer is cached", func(t *testing.T) {
		db, dbMock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		rdb, redisMock := redismock.NewClientMock()

		redisMock.ExpectGet("sub:active:" + testWorkshop).RedisNil()
		dbMock.ExpectQuery("SELECT workshop_id, starts_at, ends_at, paid").
			WithArgs(testWorkshop).
			WillReturnRows(subRows(fixedNow.AddDate(0, -1, 0), fixedNow.AddDate(0, 1, 0), true))
		redisMock.ExpectSet("sub:active:"+testWorkshop, "1", time.Minute).SetVal("OK")

		s := NewSubscriptionService(db, rdb)
		s.now = func() time.Time { return fixedNow }
		assert.NoError(t, s.Require(context.Background(), testWorkshop))
		assert.NoError(t, dbMock.ExpectationsWereMet())
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})
}

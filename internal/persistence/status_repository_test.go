package persistence

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/IliaW/robots-gate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var updateQuery = regexp.QuoteMeta("UPDATE urls SET status = $1 WHERE url = $2")

func Test_RecordStatus(t *testing.T) {
	testSet := []struct {
		name        string
		result      func(*sqlmock.ExpectedExec) *sqlmock.ExpectedExec
		expectedErr string
	}{
		{
			name: "status updated",
			result: func(e *sqlmock.ExpectedExec) *sqlmock.ExpectedExec {
				return e.WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "unknown url is a no-op",
			result: func(e *sqlmock.ExpectedExec) *sqlmock.ExpectedExec {
				return e.WillReturnResult(sqlmock.NewResult(0, 0))
			},
		},
		{
			name: "rows affected is not available",
			result: func(e *sqlmock.ExpectedExec) *sqlmock.ExpectedExec {
				return e.WillReturnResult(sqlmock.NewErrorResult(errors.New("not supported")))
			},
		},
		{
			name: "database is down",
			result: func(e *sqlmock.ExpectedExec) *sqlmock.ExpectedExec {
				return e.WillReturnError(errors.New("connection refused"))
			},
			expectedErr: "connection refused",
		},
	}
	for _, test := range testSet {
		t.Run(test.name, func(tt *testing.T) {
			db, sqlMock, err := sqlmock.New()
			require.NoError(tt, err)
			defer db.Close()

			exec := sqlMock.ExpectExec(updateQuery).
				WithArgs("disallowed-by-robots-txt", "http://example.com/page")
			test.result(exec)

			repo := NewStatusRepository(db)
			err = repo.RecordStatus(context.Background(), "http://example.com/page", model.StatusDisallowedByRobotsTxt)

			if test.expectedErr != "" {
				assert.ErrorContains(tt, err, test.expectedErr)
			} else {
				assert.NoError(tt, err)
			}
			assert.NoError(tt, sqlMock.ExpectationsWereMet())
		})
	}
}

func Test_RecordStatus_SameStatusTwice(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for i := 0; i < 2; i++ {
		sqlMock.ExpectExec(updateQuery).
			WithArgs("disallowed-mime-type", "http://example.com/file.pdf").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	repo := NewStatusRepository(db)
	assert.NoError(t, repo.RecordStatus(context.Background(), "http://example.com/file.pdf", model.StatusDisallowedMimeType))
	assert.NoError(t, repo.RecordStatus(context.Background(), "http://example.com/file.pdf", model.StatusDisallowedMimeType))
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

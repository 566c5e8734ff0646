package store

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linsu-lab/growthrate/internal/analysis"
	"github.com/linsu-lab/growthrate/internal/expphase"
	"github.com/linsu-lab/growthrate/internal/regression"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "postgres"), time.Second), mock
}

func sampleResults() []analysis.ReplicateResult {
	return []analysis.ReplicateResult{
		{
			Name: "Rep1",
			Detection: expphase.DetectionResult{
				Start: 1, End: 5, WindowSize: 4, Slope: 0.6931, RSquared: 0.999,
			},
			Fit:          regression.FitResult{Slope: 0.6931, Intercept: -2.3, RSquared: 0.999},
			GrowthRate:   0.6931,
			DoublingTime: 1.0001,
		},
		{
			Name:         "Flat",
			Detection:    expphase.DetectionResult{Start: 0, End: 3, WindowSize: 3},
			DoublingTime: math.NaN(),
		},
		{
			Name:         "Bad",
			DoublingTime: math.NaN(),
			Err:          errors.New("non-positive OD value"),
		},
	}
}

func TestStore_SaveRun(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO analysis_runs").
		WithArgs(sqlmock.AnyArg(), "data/plate1.csv").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO replicate_results").
		WithArgs(sqlmock.AnyArg(), "Rep1", 1, 5, 0.6931, 1.0001, 0.999, true, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO replicate_results").
		WithArgs(sqlmock.AnyArg(), "Flat", 0, 3, 0.0, nil, 0.0, false, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO replicate_results").
		WithArgs(sqlmock.AnyArg(), "Bad", 0, 0, 0.0, nil, 0.0, false, "non-positive OD value").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	runID, err := s.SaveRun(context.Background(), "data/plate1.csv", sampleResults())
	require.NoError(t, err)
	assert.NotEmpty(t, runID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SaveRun_RollsBackOnFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO analysis_runs").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := s.SaveRun(context.Background(), "plate.csv", sampleResults())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListRuns(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "source", "created_at"}).
		AddRow("1c9f9d16-9f64-4a3e-9a63-1f2b5a2f7d01", "a.csv", time.Now()).
		AddRow("5b7e4a88-0a10-44cd-8d26-57b90a1fbc02", "b.csv", time.Now().Add(-time.Hour))
	mock.ExpectQuery("SELECT id, source, created_at FROM analysis_runs").
		WithArgs(20).
		WillReturnRows(rows)

	runs, err := s.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "a.csv", runs[0].Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var providerCols = []string{"id", "display_name", "start_time", "end_time", "slot_duration_minutes", "working_days", "active", "deleted", "created_at", "updated_at"}

func TestPgDirectoryGetProvider(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	dir := newPgDirectoryWithQuerier(mock)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT id, display_name").WithArgs(id).WillReturnRows(
		pgxmock.NewRows(providerCols).AddRow(id, "Dr. Vega", "08:00", "09:00", int32(20), []int32{1, 2, 3, 4, 5}, true, false, now, now),
	)

	p, err := dir.GetProvider(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Vega", p.DisplayName)
	assert.Equal(t, MustClock("08:00"), p.Schedule.Start)
	assert.Equal(t, 20*time.Minute, p.Schedule.SlotDuration)
	assert.Len(t, p.Schedule.WorkingDays, 5)
	assert.True(t, p.Bookable())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgDirectoryGetProviderNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	dir := newPgDirectoryWithQuerier(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT id, display_name").WithArgs(id).WillReturnRows(pgxmock.NewRows(providerCols))

	_, err = dir.GetProvider(context.Background(), id)
	assert.ErrorIs(t, err, ErrProviderNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgDirectoryExceptionsOn(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	dir := newPgDirectoryWithQuerier(mock)
	day := time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC)
	providerID := uuid.New()

	mock.ExpectQuery("FROM exception_days").WithArgs(day).WillReturnRows(
		pgxmock.NewRows([]string{"id", "date", "provider_id", "reason"}).
			AddRow(uuid.New(), day, nil, "holiday").
			AddRow(uuid.New(), day, &providerID, "leave"),
	)

	reg, err := dir.ExceptionsOn(context.Background(), day.Add(9*time.Hour))
	require.NoError(t, err)
	require.Len(t, reg, 2)
	assert.Nil(t, reg[0].ProviderID)
	require.NotNil(t, reg[1].ProviderID)
	assert.Equal(t, providerID, *reg[1].ProviderID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemoryDirectoryListsOnlyBookable(t *testing.T) {
	dir := NewMemoryDirectory()
	dir.PutProvider(Provider{ID: uuid.New(), Active: true})
	dir.PutProvider(Provider{ID: uuid.New(), Active: false})
	dir.PutProvider(Provider{ID: uuid.New(), Active: true, Deleted: true})

	list, err := dir.ListBookableProviders(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = dir.GetProvider(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

package folio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"example.com/backstage/services/orders/internal/models"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) LockSequence(ctx context.Context, tx *gorm.DB, name string) (*models.FolioSequence, error) {
	args := m.Called(ctx, tx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FolioSequence), args.Error(1)
}

func (m *MockStore) CreateSequence(ctx context.Context, tx *gorm.DB, seq *models.FolioSequence) error {
	args := m.Called(ctx, tx, seq)
	return args.Error(0)
}

func (m *MockStore) SaveSequence(ctx context.Context, tx *gorm.DB, seq *models.FolioSequence) error {
	args := m.Called(ctx, tx, seq)
	return args.Error(0)
}

func (m *MockStore) LastAssignedFolio(ctx context.Context, tx *gorm.DB) (string, error) {
	args := m.Called(ctx, tx)
	return args.String(0), args.Error(1)
}

func TestNextIncrementsExistingSequence(t *testing.T) {
	store := new(MockStore)
	store.On("LockSequence", mock.Anything, mock.Anything, "orders").
		Return(&models.FolioSequence{Name: "orders", Value: 14050}, nil)
	store.On("SaveSequence", mock.Anything, mock.Anything, mock.AnythingOfType("*models.FolioSequence")).
		Return(nil)

	seq := NewSequencer(store, "FO-", DefaultBase)
	got, err := seq.Next(context.Background(), nil)

	require.NoError(t, err)
	require.Equal(t, "FO-14051", got)
	store.AssertExpectations(t)
}

func TestNextSeedsFromLastAssignedFolio(t *testing.T) {
	store := new(MockStore)
	store.On("LockSequence", mock.Anything, mock.Anything, "orders").Return(nil, nil)
	store.On("LastAssignedFolio", mock.Anything, mock.Anything).Return("FO-14100", nil)
	store.On("CreateSequence", mock.Anything, mock.Anything, mock.AnythingOfType("*models.FolioSequence")).
		Return(nil)
	store.On("SaveSequence", mock.Anything, mock.Anything, mock.AnythingOfType("*models.FolioSequence")).
		Return(nil)

	seq := NewSequencer(store, "FO-", DefaultBase)
	got, err := seq.Next(context.Background(), nil)

	require.NoError(t, err)
	require.Equal(t, "FO-14101", got)
}

func TestNextFallsBackToBaseWhenSuffixUnparseable(t *testing.T) {
	store := new(MockStore)
	store.On("LockSequence", mock.Anything, mock.Anything, "orders").Return(nil, nil)
	store.On("LastAssignedFolio", mock.Anything, mock.Anything).Return("LEGACY", nil)
	store.On("CreateSequence", mock.Anything, mock.Anything, mock.AnythingOfType("*models.FolioSequence")).
		Return(nil)
	store.On("SaveSequence", mock.Anything, mock.Anything, mock.AnythingOfType("*models.FolioSequence")).
		Return(nil)

	seq := NewSequencer(store, "FO-", DefaultBase)
	got, err := seq.Next(context.Background(), nil)

	require.NoError(t, err)
	require.Equal(t, "FO-14043", got)
}

func TestNextIsStrictlyIncreasing(t *testing.T) {
	state := &models.FolioSequence{Name: "orders", Value: 14042}
	store := new(MockStore)
	store.On("LockSequence", mock.Anything, mock.Anything, "orders").Return(state, nil)
	store.On("SaveSequence", mock.Anything, mock.Anything, state).Return(nil)

	seq := NewSequencer(store, "FO-", DefaultBase)

	var prev int64
	for i := 0; i < 5; i++ {
		got, err := seq.Next(context.Background(), nil)
		require.NoError(t, err)

		n, ok := ParseSuffix(got)
		require.True(t, ok)
		if i > 0 {
			require.Greater(t, n, prev)
		}
		prev = n
	}
}

func TestParseSuffix(t *testing.T) {
	n, ok := ParseSuffix("FO-14043")
	require.True(t, ok)
	require.Equal(t, int64(14043), n)

	_, ok = ParseSuffix("no digits here")
	require.False(t, ok)

	_, ok = ParseSuffix("")
	require.False(t, ok)
}

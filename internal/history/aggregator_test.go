package history

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/baechuer/recsys-storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLog struct {
	mock.Mock
}

func (m *mockLog) History(ctx context.Context, userID domain.Identity, bearerToken string) ([]domain.InteractionRecord, error) {
	args := m.Called(ctx, userID, bearerToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.InteractionRecord), args.Error(1)
}

type mockProducts struct {
	mock.Mock
}

func (m *mockProducts) GetProduct(ctx context.Context, productID int) (*domain.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func ts(day int) domain.Timestamp {
	return domain.Timestamp{Time: time.Date(2024, 5, day, 10, 0, 0, 0, time.UTC)}
}

func TestLoad_NotAuthenticated(t *testing.T) {
	log := new(mockLog)
	products := new(mockProducts)

	out, err := NewAggregator(log, products, 0).Load(context.Background(), domain.Anonymous, "")
	assert.ErrorIs(t, err, domain.ErrLoginRequired)
	assert.NotNil(t, out)
	assert.Empty(t, out)

	log.AssertNotCalled(t, "History", mock.Anything, mock.Anything, mock.Anything)
	products.AssertNotCalled(t, "GetProduct", mock.Anything, mock.Anything)
}

func TestLoad_JoinsInLogOrder(t *testing.T) {
	records := []domain.InteractionRecord{
		{ProductID: 42, InteractionType: domain.ActionView, Timestamp: ts(1)},
		{ProductID: 42, InteractionType: domain.ActionLike, Timestamp: ts(2)},
		{ProductID: 7, InteractionType: domain.ActionView, Timestamp: ts(3)},
	}
	lamp := &domain.Product{ProductID: 42, ProductName: "Lamp"}

	log := new(mockLog)
	log.On("History", mock.Anything, domain.Identity("3"), "tok").Return(records, nil)
	products := new(mockProducts)
	products.On("GetProduct", mock.Anything, 42).Return(lamp, nil).Once()
	products.On("GetProduct", mock.Anything, 7).Return(nil, domain.ErrNotFound).Once()

	out, err := NewAggregator(log, products, 0).Load(context.Background(), "3", "tok")
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, domain.ActionView, out[0].Interaction.InteractionType)
	assert.Equal(t, lamp, out[0].Product)
	assert.Equal(t, ts(1), out[0].Interaction.Timestamp)

	assert.Equal(t, domain.ActionLike, out[1].Interaction.InteractionType)
	assert.Equal(t, lamp, out[1].Product)
	assert.Equal(t, ts(2), out[1].Interaction.Timestamp)

	assert.Equal(t, domain.ActionView, out[2].Interaction.InteractionType)
	assert.Equal(t, 7, out[2].Interaction.ProductID)
	assert.Nil(t, out[2].Product)

	products.AssertExpectations(t)
}

// countingProducts counts calls per id and resolves them out of order.
type countingProducts struct {
	calls   [100]atomic.Int32
	failing map[int]bool
}

func (c *countingProducts) GetProduct(_ context.Context, productID int) (*domain.Product, error) {
	c.calls[productID].Add(1)
	time.Sleep(time.Duration(10-productID%10) * time.Millisecond)
	if c.failing[productID] {
		return nil, domain.ErrUnavailable
	}
	return &domain.Product{ProductID: productID}, nil
}

func TestLoad_FetchesEachProductOnce(t *testing.T) {
	ids := []int{5, 1, 5, 9, 1, 1, 3, 9, 5, 2}
	records := make([]domain.InteractionRecord, len(ids))
	for i, id := range ids {
		records[i] = domain.InteractionRecord{ID: i, ProductID: id, InteractionType: domain.ActionView}
	}

	log := new(mockLog)
	log.On("History", mock.Anything, mock.Anything, mock.Anything).Return(records, nil)
	products := &countingProducts{failing: map[int]bool{9: true}}

	out, err := NewAggregator(log, products, 2).Load(context.Background(), "3", "tok")
	require.NoError(t, err)
	require.Len(t, out, len(ids))

	for _, id := range []int{5, 1, 9, 3, 2} {
		assert.Equal(t, int32(1), products.calls[id].Load(), "product %d", id)
	}
	for i, e := range out {
		assert.Equal(t, i, e.Interaction.ID, "log order preserved")
		if e.Interaction.ProductID == 9 {
			assert.Nil(t, e.Product)
			continue
		}
		require.NotNil(t, e.Product)
		assert.Equal(t, e.Interaction.ProductID, e.Product.ProductID)
	}
}

func TestLoad_LogFailure(t *testing.T) {
	log := new(mockLog)
	log.On("History", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrUnauthorized)
	products := new(mockProducts)

	out, err := NewAggregator(log, products, 0).Load(context.Background(), "3", "stale")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Nil(t, out)
	products.AssertNotCalled(t, "GetProduct", mock.Anything, mock.Anything)
}

func TestLoad_EmptyLog(t *testing.T) {
	log := new(mockLog)
	log.On("History", mock.Anything, mock.Anything, mock.Anything).Return([]domain.InteractionRecord{}, nil)

	out, err := NewAggregator(log, new(mockProducts), 0).Load(context.Background(), "3", "tok")
	require.NoError(t, err)
	assert.Empty(t, out)
}

package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/baechuer/recsys-storefront/internal/domain"
	"github.com/baechuer/recsys-storefront/internal/downstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLister struct {
	mock.Mock
}

func (m *mockLister) ListProducts(ctx context.Context, q downstream.ProductQuery) (*domain.ProductPage, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductPage), args.Error(1)
}

// fakeBackend filters an in-memory catalog the way the backend does.
type fakeBackend struct {
	products []domain.Product
}

func (f *fakeBackend) ListProducts(_ context.Context, q downstream.ProductQuery) (*domain.ProductPage, error) {
	out := make([]domain.Product, 0)
	for _, p := range f.products {
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		out = append(out, p)
	}
	return &domain.ProductPage{Total: len(out), PageSize: q.PageSize, Products: out}, nil
}

func TestFetch_CategoryFilter(t *testing.T) {
	backend := &fakeBackend{products: []domain.Product{
		{ProductID: 1, Category: "Books"},
		{ProductID: 2, Category: "Electronics"},
		{ProductID: 3, Category: "Books"},
		{ProductID: 4, Category: "Electronics"},
		{ProductID: 5, Category: "Books"},
	}}
	src := NewSource(backend, 0)

	res, err := src.Fetch(context.Background(), Filters{Category: "Books"})
	require.NoError(t, err)
	require.Len(t, res.Products, 3)
	for _, p := range res.Products {
		assert.Equal(t, "Books", p.Category)
	}
	assert.Equal(t, []string{"Books"}, res.Categories)
}

func TestFetch_OneRequestWithBoundedPage(t *testing.T) {
	lister := new(mockLister)
	lister.On("ListProducts", mock.Anything, downstream.ProductQuery{Search: "lamp", PageSize: 25}).
		Return(&domain.ProductPage{Products: []domain.Product{}}, nil).Once()

	src := NewSource(lister, 25)
	_, err := src.Fetch(context.Background(), Filters{Search: "  lamp "})
	require.NoError(t, err)

	lister.AssertExpectations(t)
	lister.AssertNumberOfCalls(t, "ListProducts", 1)
}

func TestCategories_FirstSeenOrder(t *testing.T) {
	got := Categories([]domain.Product{
		{Category: "Toys"},
		{Category: "Books"},
		{Category: ""},
		{Category: "Toys"},
		{Category: "Garden"},
	})
	assert.Equal(t, []string{"Toys", "Books", "Garden"}, got)
	assert.Empty(t, Categories(nil))
}

func TestLatest_Lifecycle(t *testing.T) {
	lister := new(mockLister)
	lister.On("ListProducts", mock.Anything, mock.MatchedBy(func(q downstream.ProductQuery) bool { return q.Category == "Books" })).
		Return(&domain.ProductPage{Total: 1, Products: []domain.Product{{ProductID: 1, Category: "Books"}}}, nil)
	lister.On("ListProducts", mock.Anything, mock.MatchedBy(func(q downstream.ProductQuery) bool { return q.Category == "Toys" })).
		Return(nil, domain.ErrUnavailable)

	src := NewSource(lister, 0)
	assert.Equal(t, domain.LoadLoading, src.Latest().Status)

	_, err := src.Fetch(context.Background(), Filters{Category: "Books"})
	require.NoError(t, err)
	v := src.Latest()
	assert.Equal(t, domain.LoadReady, v.Status)
	assert.Equal(t, 1, v.Result.Total)
	assert.Equal(t, 0, v.Pending)

	_, err = src.Fetch(context.Background(), Filters{Category: "Toys"})
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	v = src.Latest()
	assert.Equal(t, domain.LoadFailed, v.Status)
	assert.Equal(t, "Toys", v.Result.Filters.Category)
	assert.Empty(t, v.Result.Products)
	assert.NotEmpty(t, v.Error)
}

// blockingLister releases each category's response only when told to.
type blockingLister struct {
	release map[string]chan struct{}
}

func (b *blockingLister) ListProducts(_ context.Context, q downstream.ProductQuery) (*domain.ProductPage, error) {
	<-b.release[q.Category]
	return &domain.ProductPage{Products: []domain.Product{{Category: q.Category}}}, nil
}

func TestFetch_ResolutionOrderWins(t *testing.T) {
	b := &blockingLister{release: map[string]chan struct{}{
		"Old": make(chan struct{}),
		"New": make(chan struct{}),
	}}
	src := NewSource(b, 0)

	done := make(chan struct{}, 2)
	go func() { src.Fetch(context.Background(), Filters{Category: "Old"}); done <- struct{}{} }()
	go func() { src.Fetch(context.Background(), Filters{Category: "New"}); done <- struct{}{} }()

	assert.Eventually(t, func() bool { return src.Latest().Pending == 2 }, time.Second, 5*time.Millisecond)

	close(b.release["New"])
	<-done
	assert.Equal(t, "New", src.Latest().Result.Filters.Category)

	// the older request resolves last and is what the page shows
	close(b.release["Old"])
	<-done
	assert.Equal(t, "Old", src.Latest().Result.Filters.Category)
	assert.Equal(t, 0, src.Latest().Pending)
}

func TestFetch_ErrorIsReturned(t *testing.T) {
	lister := new(mockLister)
	boom := errors.New("boom")
	lister.On("ListProducts", mock.Anything, mock.Anything).Return(nil, boom)

	_, err := NewSource(lister, 0).Fetch(context.Background(), Filters{})
	assert.ErrorIs(t, err, boom)
}

package product

import (
	"context"
	"errors"
	"testing"

	"github.com/example/pharmacy-storefront/internal/infrastructure/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProductService() (*Service, *mocks.MockEventStore) {
	eventStore := mocks.NewMockEventStore()
	service := NewService(eventStore)
	return service, eventStore
}

func amoxicillin() Input {
	return Input{
		Name:                 "Amoxicillin 500mg",
		Description:          "Antibiotic capsules",
		Price:                35000,
		Stock:                40,
		CategoryID:           "cat-antibiotics",
		RequiresPrescription: true,
	}
}

func seedProduct(t *testing.T, eventStore *mocks.MockEventStore, id string, stock int) {
	t.Helper()
	require.NoError(t, eventStore.AddEvent(id, AggregateType, EventProductCreated, ProductCreated{
		ProductID: id, Name: "Seeded", Price: 1000, Stock: stock,
	}))
}

// ============================================
// Create Product Tests
// ============================================

func TestService_Create_ValidProduct(t *testing.T) {
	service, eventStore := newTestProductService()

	product, err := service.Create(context.Background(), amoxicillin())

	require.NoError(t, err)
	assert.NotEmpty(t, product.ID)
	assert.Equal(t, "Amoxicillin 500mg", product.Name)
	assert.Equal(t, 35000, product.Price)
	assert.Equal(t, 40, product.Stock)
	assert.True(t, product.RequiresPrescription)
	assert.Equal(t, "cat-antibiotics", product.CategoryID)
	assert.False(t, product.IsDeleted)

	require.Len(t, eventStore.AppendCalls, 1)
	assert.Equal(t, EventProductCreated, eventStore.AppendCalls[0].EventType)
	assert.Equal(t, AggregateType, eventStore.AppendCalls[0].AggregateType)
}

func TestService_Create_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
		want   error
	}{
		{"empty name", func(in *Input) { in.Name = "" }, ErrInvalidName},
		{"zero price", func(in *Input) { in.Price = 0 }, ErrInvalidPrice},
		{"negative price", func(in *Input) { in.Price = -100 }, ErrInvalidPrice},
		{"negative stock", func(in *Input) { in.Stock = -1 }, ErrInvalidStock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, eventStore := newTestProductService()
			in := amoxicillin()
			tt.mutate(&in)

			product, err := service.Create(context.Background(), in)

			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, product)
			assert.Empty(t, eventStore.AppendCalls)
		})
	}
}

func TestService_Create_ZeroStock(t *testing.T) {
	service, _ := newTestProductService()
	in := amoxicillin()
	in.Stock = 0

	product, err := service.Create(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, 0, product.Stock)
}

// ============================================
// Update / Delete Tests
// ============================================

func TestService_Update_Success(t *testing.T) {
	service, eventStore := newTestProductService()
	seedProduct(t, eventStore, "prod-123", 7)

	in := amoxicillin()
	in.Price = 38000
	product, err := service.Update(context.Background(), "prod-123", in)

	require.NoError(t, err)
	assert.Equal(t, 38000, product.Price)
	assert.Equal(t, 7, product.Stock, "update leaves stock alone")

	data := eventStore.AppendCalls[0].Data.(ProductUpdated)
	assert.Equal(t, "Amoxicillin 500mg", data.Name)
}

func TestService_Update_NotFound(t *testing.T) {
	service, _ := newTestProductService()

	_, err := service.Update(context.Background(), "non-existent", amoxicillin())

	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestService_Delete_ThenNotFound(t *testing.T) {
	service, eventStore := newTestProductService()
	ctx := context.Background()
	seedProduct(t, eventStore, "prod-123", 7)

	require.NoError(t, service.Delete(ctx, "prod-123"))
	assert.Equal(t, EventProductDeleted, eventStore.AppendCalls[0].EventType)

	_, err := service.Get(ctx, "prod-123")
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.ErrorIs(t, service.Delete(ctx, "prod-123"), ErrProductNotFound)
}

// ============================================
// Stock Tests
// ============================================

func TestService_AdjustStock(t *testing.T) {
	service, eventStore := newTestProductService()
	ctx := context.Background()
	seedProduct(t, eventStore, "prod-123", 10)

	product, err := service.AdjustStock(ctx, "prod-123", -4, "sold at counter")
	require.NoError(t, err)
	assert.Equal(t, 6, product.Stock)

	product, err = service.AdjustStock(ctx, "prod-123", 20, "restock")
	require.NoError(t, err)
	assert.Equal(t, 26, product.Stock)

	data := eventStore.AppendCalls[1].Data.(ProductStockAdjusted)
	assert.Equal(t, 20, data.Delta)
	assert.Equal(t, 26, data.Stock)
}

func TestService_AdjustStock_Insufficient(t *testing.T) {
	service, eventStore := newTestProductService()
	seedProduct(t, eventStore, "prod-123", 3)

	_, err := service.AdjustStock(context.Background(), "prod-123", -4, "")

	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Empty(t, eventStore.AppendCalls)
}

func TestService_AdjustStock_Zero(t *testing.T) {
	service, _ := newTestProductService()

	_, err := service.AdjustStock(context.Background(), "prod-123", 0, "")

	assert.ErrorIs(t, err, ErrZeroStockAdjustment)
}

func TestService_Create_EventStoreError(t *testing.T) {
	service, eventStore := newTestProductService()
	eventStore.AppendErr = errors.New("database error")

	_, err := service.Create(context.Background(), amoxicillin())

	assert.EqualError(t, err, "database error")
}

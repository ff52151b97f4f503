package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		ServerKey: "SB-Mid-server-test",
		ClientKey: "SB-Mid-client-test",
		SnapURL:   srv.URL,
		APIURL:    srv.URL,
	})
}

// ============================================
// CreateTransaction Tests
// ============================================

func TestClient_CreateTransaction_Success(t *testing.T) {
	var got Transaction
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/snap/v1/transactions", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "SB-Mid-server-test", user)
		assert.Empty(t, pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"token":"snap-token","redirect_url":"https://pay/snap-token"}`))
	})

	tx := Transaction{TransactionDetails: TransactionDetails{OrderID: "ORD-1", GrossAmount: 26400}}
	resp, err := client.CreateTransaction(context.Background(), tx)

	require.NoError(t, err)
	assert.Equal(t, "snap-token", resp.Token)
	assert.Equal(t, "https://pay/snap-token", resp.RedirectURL)
	assert.Equal(t, "ORD-1", got.TransactionDetails.OrderID)
}

func TestClient_CreateTransaction_GatewayRejects(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_messages":["transaction_details.gross_amount is not equal to the sum of item_details"]}`))
	})

	_, err := client.CreateTransaction(context.Background(), Transaction{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGateway)
	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusBadRequest, gwErr.StatusCode)
	assert.Contains(t, gwErr.Message, "gross_amount")
}

func TestClient_CreateTransaction_MissingToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"redirect_url":"x"}`))
	})

	_, err := client.CreateTransaction(context.Background(), Transaction{})

	assert.ErrorIs(t, err, ErrGateway)
}

func TestClient_CreateTransaction_MalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := client.CreateTransaction(context.Background(), Transaction{})

	assert.ErrorIs(t, err, ErrGateway)
}

func TestClient_CreateTransaction_NotConfigured(t *testing.T) {
	client := NewClient(Config{})

	_, err := client.CreateTransaction(context.Background(), Transaction{})

	assert.ErrorIs(t, err, ErrNotConfigured)
}

// ============================================
// TransactionStatus Tests
// ============================================

func TestClient_TransactionStatus_Settlement(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v2/ORD-1/status", r.URL.Path)
		_, _ = w.Write([]byte(`{"status_code":"200","order_id":"ORD-1","gross_amount":"26400.00","transaction_status":"settlement"}`))
	})

	st, err := client.TransactionStatus(context.Background(), "ORD-1")

	require.NoError(t, err)
	assert.Equal(t, OutcomePaid, st.Outcome())
	assert.Equal(t, "26400.00", st.GrossAmount)
}

func TestClient_TransactionStatus_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status_code":"404","status_message":"Transaction doesn't exist."}`))
	})

	_, err := client.TransactionStatus(context.Background(), "ORD-404")

	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestClient_TransactionStatus_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status_message":"boom"}`))
	})

	_, err := client.TransactionStatus(context.Background(), "ORD-1")

	assert.ErrorIs(t, err, ErrGateway)
}

func TestConfig_Enabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.False(t, Config{ServerKey: "s"}.Enabled())
	assert.True(t, Config{ServerKey: "s", ClientKey: "c"}.Enabled())
}

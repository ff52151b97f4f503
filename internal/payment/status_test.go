package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		status, fraud string
		want          Outcome
	}{
		{"settlement", "", OutcomePaid},
		{"capture", "accept", OutcomePaid},
		{"capture", "", OutcomePaid},
		{"capture", "challenge", OutcomePending},
		{"capture", "deny", OutcomeFailed},
		{"pending", "", OutcomePending},
		{"deny", "", OutcomeFailed},
		{"cancel", "", OutcomeFailed},
		{"expire", "", OutcomeFailed},
		{"failure", "", OutcomeFailed},
		{"authorize", "", OutcomePending},
	}

	for _, tt := range tests {
		t.Run(tt.status+"/"+tt.fraud, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.status, tt.fraud))
		})
	}
}

func TestVerifySignature(t *testing.T) {
	n := Status{
		OrderID:     "ORD-1700000000000",
		StatusCode:  "200",
		GrossAmount: "26400.00",
	}
	n.SignatureKey = Signature(n.OrderID, n.StatusCode, n.GrossAmount, "server-key")

	assert.True(t, VerifySignature(n, "server-key"))
	assert.False(t, VerifySignature(n, "other-key"))
	assert.False(t, VerifySignature(n, ""))

	tampered := n
	tampered.GrossAmount = "1.00"
	assert.False(t, VerifySignature(tampered, "server-key"))

	unsigned := n
	unsigned.SignatureKey = ""
	assert.False(t, VerifySignature(unsigned, "server-key"))
}

func TestSignature_KnownValue(t *testing.T) {
	// sha512 of the concatenated fields, hex encoded
	sig := Signature("a", "b", "c", "d")

	assert.Len(t, sig, 128)
	assert.Equal(t, Signature("ab", "", "c", "d"), sig)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		gross   string
		want    int
		wantErr bool
	}{
		{"26400.00", 26400, false},
		{"26400", 26400, false},
		{"1.00", 1, false},
		{"26400.50", 0, true},
		{"", 0, true},
		{"-5.00", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.gross, func(t *testing.T) {
			got, err := ParseAmount(tt.gross)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatus_PaidAmount(t *testing.T) {
	assert.True(t, Status{GrossAmount: "26400.00"}.PaidAmount(26400))
	assert.False(t, Status{GrossAmount: "1.00"}.PaidAmount(26400))
	assert.False(t, Status{GrossAmount: "bogus"}.PaidAmount(0))
}

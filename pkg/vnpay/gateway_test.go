package vnpay

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway() *Gateway {
	g := NewGateway("TESTTMN", "test-hash-secret", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html", "http://localhost:8080/api/v1/payments/vnpay-return")
	g.now = func() time.Time {
		return time.Date(2026, 8, 31, 14, 30, 0, 0, time.UTC)
	}
	return g
}

func TestBuildPaymentURL(t *testing.T) {
	g := newTestGateway()

	t.Run("Carries Signed Gateway Parameters", func(t *testing.T) {
		rawURL, expiresAt, err := g.BuildPaymentURL(PaymentRequest{
			TxnRef:    "f2c9a1d0-0000-4000-8000-000000000001",
			Amount:    450000,
			OrderInfo: "Thanh toan don hang BK-20260831-ABC123",
			IPAddr:    "203.0.113.7",
		})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(rawURL, g.payURL+"?"))

		parsed, err := url.Parse(rawURL)
		require.NoError(t, err)
		params := parsed.Query()

		assert.Equal(t, "2.1.0", params.Get("vnp_Version"))
		assert.Equal(t, "pay", params.Get("vnp_Command"))
		assert.Equal(t, "TESTTMN", params.Get("vnp_TmnCode"))
		assert.Equal(t, "vn", params.Get("vnp_Locale"))
		assert.Equal(t, "VND", params.Get("vnp_CurrCode"))
		assert.Equal(t, "45000000", params.Get("vnp_Amount"))
		assert.Equal(t, "f2c9a1d0-0000-4000-8000-000000000001", params.Get("vnp_TxnRef"))
		assert.Equal(t, "20260831143000", params.Get("vnp_CreateDate"))
		assert.Equal(t, "20260831144500", params.Get("vnp_ExpireDate"))
		assert.Equal(t, time.Date(2026, 8, 31, 14, 45, 0, 0, time.UTC), expiresAt)

		// The URL we hand out must verify under our own scheme, since
		// callbacks echo these parameters back.
		assert.True(t, g.VerifySignature(params))
	})

	t.Run("Honors Explicit Locale", func(t *testing.T) {
		rawURL, _, err := g.BuildPaymentURL(PaymentRequest{
			TxnRef: "ref-1",
			Amount: 100000,
			IPAddr: "203.0.113.7",
			Locale: "en",
		})
		require.NoError(t, err)

		parsed, err := url.Parse(rawURL)
		require.NoError(t, err)
		assert.Equal(t, "en", parsed.Query().Get("vnp_Locale"))
	})

	t.Run("Rejects Missing Reference", func(t *testing.T) {
		_, _, err := g.BuildPaymentURL(PaymentRequest{Amount: 100000})
		assert.Error(t, err)
	})

	t.Run("Rejects Non Positive Amount", func(t *testing.T) {
		_, _, err := g.BuildPaymentURL(PaymentRequest{TxnRef: "ref-1", Amount: 0})
		assert.Error(t, err)

		_, _, err = g.BuildPaymentURL(PaymentRequest{TxnRef: "ref-1", Amount: -500})
		assert.Error(t, err)
	})
}

func TestVerifySignature(t *testing.T) {
	g := newTestGateway()

	signedParams := func() url.Values {
		params := url.Values{}
		params.Set("vnp_TmnCode", "TESTTMN")
		params.Set("vnp_TxnRef", "ref-1")
		params.Set("vnp_ResponseCode", "00")
		params.Set("vnp_Amount", "45000000")
		params.Set("vnp_SecureHash", g.sign(params.Encode()))
		return params
	}

	t.Run("Valid", func(t *testing.T) {
		assert.True(t, g.VerifySignature(signedParams()))
	})

	t.Run("Hash Type Field Is Excluded From Signing", func(t *testing.T) {
		params := signedParams()
		params.Set("vnp_SecureHashType", "HmacSHA512")
		assert.True(t, g.VerifySignature(params))
	})

	t.Run("Tampered Parameter", func(t *testing.T) {
		params := signedParams()
		params.Set("vnp_Amount", "100")
		assert.False(t, g.VerifySignature(params))
	})

	t.Run("Missing Hash", func(t *testing.T) {
		params := signedParams()
		params.Del("vnp_SecureHash")
		assert.False(t, g.VerifySignature(params))
	})

	t.Run("Wrong Secret", func(t *testing.T) {
		other := NewGateway("TESTTMN", "another-secret", g.payURL, g.returnURL)
		assert.False(t, other.VerifySignature(signedParams()))
	})
}

package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// VNPay gateway response codes
const (
	ResponseCodeSuccess = "00"
)

// Gateway builds payment URLs for and verifies callbacks from the VNPay
// payment gateway. Signatures are HMAC-SHA512 over the sorted-key
// URL-encoded parameter string, the scheme VNPay specifies.
type Gateway struct {
	tmnCode    string
	hashSecret string
	payURL     string
	returnURL  string
	expiry     time.Duration
	now        func() time.Time
}

// PaymentRequest describes one outbound payment to build a URL for
type PaymentRequest struct {
	TxnRef    string  // payment ledger row ID, echoed back in callbacks
	Amount    float64 // in VND; VNPay wire format multiplies by 100
	OrderInfo string
	IPAddr    string
	Locale    string // defaults to "vn"
}

// NewGateway creates a new VNPay gateway client
func NewGateway(tmnCode, hashSecret, payURL, returnURL string) *Gateway {
	return &Gateway{
		tmnCode:    tmnCode,
		hashSecret: hashSecret,
		payURL:     payURL,
		returnURL:  returnURL,
		expiry:     15 * time.Minute,
		now:        time.Now,
	}
}

// BuildPaymentURL builds a signed VNPay payment page URL. The URL is
// valid for 15 minutes from creation.
func (g *Gateway) BuildPaymentURL(req PaymentRequest) (string, time.Time, error) {
	if req.TxnRef == "" {
		return "", time.Time{}, fmt.Errorf("txn ref is required")
	}
	if req.Amount <= 0 {
		return "", time.Time{}, fmt.Errorf("amount must be positive")
	}

	locale := req.Locale
	if locale == "" {
		locale = "vn"
	}

	createDate := g.now()
	expireDate := createDate.Add(g.expiry)

	params := url.Values{}
	params.Set("vnp_Version", "2.1.0")
	params.Set("vnp_Command", "pay")
	params.Set("vnp_TmnCode", g.tmnCode)
	params.Set("vnp_Locale", locale)
	params.Set("vnp_CurrCode", "VND")
	params.Set("vnp_TxnRef", req.TxnRef)
	params.Set("vnp_OrderInfo", req.OrderInfo)
	params.Set("vnp_OrderType", "other")
	params.Set("vnp_Amount", strconv.FormatInt(int64(req.Amount*100), 10))
	params.Set("vnp_ReturnUrl", g.returnURL)
	params.Set("vnp_IpAddr", req.IPAddr)
	params.Set("vnp_CreateDate", createDate.Format("20060102150405"))
	params.Set("vnp_ExpireDate", expireDate.Format("20060102150405"))

	// url.Values.Encode sorts keys, which is exactly the canonical
	// string VNPay signs.
	signData := params.Encode()
	params.Set("vnp_SecureHash", g.sign(signData))

	return g.payURL + "?" + params.Encode(), expireDate, nil
}

// VerifySignature checks the vnp_SecureHash of a callback against the
// remaining parameters. The hash fields themselves are excluded from the
// signed string.
func (g *Gateway) VerifySignature(params url.Values) bool {
	received := params.Get("vnp_SecureHash")
	if received == "" {
		return false
	}

	verifiable := url.Values{}
	for key, values := range params {
		if key == "vnp_SecureHash" || key == "vnp_SecureHashType" {
			continue
		}
		for _, v := range values {
			verifiable.Add(key, v)
		}
	}

	expected := g.sign(verifiable.Encode())
	return hmac.Equal([]byte(expected), []byte(received))
}

func (g *Gateway) sign(data string) string {
	mac := hmac.New(sha512.New, []byte(g.hashSecret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

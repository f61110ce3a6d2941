package paytabs

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testConfig(baseURL string) Config {
	return Config{
		ProfileID: "123456",
		ServerKey: "S6J9ZZZZZZ-TESTKEY",
		BaseURL:   baseURL,
	}
}

func TestNewClient(t *testing.T) {
	t.Run("requires profile id and server key", func(t *testing.T) {
		if _, err := NewClient(Config{ProfileID: "123456"}); err == nil {
			t.Fatal("expected an error without a server key")
		}
		if _, err := NewClient(Config{ServerKey: "key"}); err == nil {
			t.Fatal("expected an error without a profile id")
		}
	})

	t.Run("applies regional defaults", func(t *testing.T) {
		client, err := NewClient(testConfig(""))
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if client.Currency() != "EGP" {
			t.Fatalf("expected EGP default, got %s", client.Currency())
		}
		if client.cfg.BaseURL != "https://secure-egypt.paytabs.com" {
			t.Fatalf("unexpected base url: %s", client.cfg.BaseURL)
		}
	})
}

func TestCreatePaymentLink(t *testing.T) {
	ctx := context.Background()

	t.Run("sends a sale request and returns the hosted page", func(t *testing.T) {
		var got paymentRequest
		var gotAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/payment/request" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			gotAuth = r.Header.Get("Authorization")
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Errorf("decoding request: %v", err)
			}
			json.NewEncoder(w).Encode(paymentResponse{
				TranRef:     "TST2109200000322",
				RedirectURL: "https://secure-egypt.paytabs.com/payment/page/abc",
			})
		}))
		defer srv.Close()

		client, _ := NewClient(testConfig(srv.URL))
		link, err := client.CreatePaymentLink(ctx, CreatePaymentLinkInput{
			CourseID:      "3f0a",
			CourseTitle:   "Arabic Calligraphy",
			Amount:        499,
			CustomerEmail: "student@example.com",
			CustomerName:  "Student",
			CallbackURL:   "https://app.example.com/v1/webhooks/paytabs",
			ReturnURL:     "https://app.example.com/return",
		})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if link.TranRef != "TST2109200000322" {
			t.Fatalf("unexpected tran ref: %s", link.TranRef)
		}

		if gotAuth != "S6J9ZZZZZZ-TESTKEY" {
			t.Fatalf("server key not sent as Authorization, got %q", gotAuth)
		}
		if got.TranType != "sale" || got.TranClass != "ecom" {
			t.Fatalf("unexpected transaction kind: %s/%s", got.TranType, got.TranClass)
		}
		if !strings.HasPrefix(got.CartID, "course_3f0a_") {
			t.Fatalf("cart id should embed the course id, got %s", got.CartID)
		}
		if got.CartAmount != 499 || got.CartCurrency != "EGP" {
			t.Fatalf("unexpected cart: %v %s", got.CartAmount, got.CartCurrency)
		}
		if got.CustomerDetails.Email != "student@example.com" {
			t.Fatalf("unexpected customer email: %s", got.CustomerDetails.Email)
		}
	})

	t.Run("surfaces the provider message when the link is missing", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(paymentResponse{Message: "Invalid currency"})
		}))
		defer srv.Close()

		client, _ := NewClient(testConfig(srv.URL))
		_, err := client.CreatePaymentLink(ctx, CreatePaymentLinkInput{CourseID: "x", Amount: 1})
		var gerr *GatewayError
		if !errors.As(err, &gerr) {
			t.Fatalf("expected GatewayError, got: %v", err)
		}
		if !strings.Contains(gerr.Message, "Invalid currency") {
			t.Fatalf("expected provider diagnostic, got: %s", gerr.Message)
		}
	})

	t.Run("includes the diagnostic from a non-2xx response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "Invalid server key"})
		}))
		defer srv.Close()

		client, _ := NewClient(testConfig(srv.URL))
		_, err := client.CreatePaymentLink(ctx, CreatePaymentLinkInput{CourseID: "x", Amount: 1})
		var gerr *GatewayError
		if !errors.As(err, &gerr) {
			t.Fatalf("expected GatewayError, got: %v", err)
		}
		if !strings.Contains(gerr.Message, "401") || !strings.Contains(gerr.Message, "Invalid server key") {
			t.Fatalf("expected status and diagnostic, got: %s", gerr.Message)
		}
	})

	t.Run("transport failure is a gateway error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		client, _ := NewClient(testConfig(srv.URL))
		_, err := client.CreatePaymentLink(ctx, CreatePaymentLinkInput{CourseID: "x", Amount: 1})
		var gerr *GatewayError
		if !errors.As(err, &gerr) {
			t.Fatalf("expected GatewayError, got: %v", err)
		}
		if gerr.Err == nil {
			t.Fatal("transport errors should be wrapped")
		}
	})
}

func TestVerifyPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("parses the payment result", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/payment/query" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["tran_ref"] != "TST123" || body["profile_id"] != "123456" {
				t.Errorf("unexpected query body: %v", body)
			}
			json.NewEncoder(w).Encode(TransactionStatus{
				TranRef: "TST123",
				CartID:  "course_3f0a_1700000000000",
				PaymentResult: PaymentResult{
					ResponseStatus:  "A",
					ResponseCode:    "000",
					ResponseMessage: "Authorised",
				},
			})
		}))
		defer srv.Close()

		client, _ := NewClient(testConfig(srv.URL))
		status, err := client.VerifyPayment(ctx, "TST123")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if status.PaymentResult.ResponseStatus != "A" || status.PaymentResult.ResponseCode != "000" {
			t.Fatalf("unexpected result: %+v", status.PaymentResult)
		}
	})

	t.Run("malformed body is a gateway error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>maintenance</html>"))
		}))
		defer srv.Close()

		client, _ := NewClient(testConfig(srv.URL))
		_, err := client.VerifyPayment(ctx, "TST123")
		var gerr *GatewayError
		if !errors.As(err, &gerr) {
			t.Fatalf("expected GatewayError, got: %v", err)
		}
	})
}

func TestValidateCallbackSignature(t *testing.T) {
	client, _ := NewClient(testConfig(""))
	body := []byte(`{"tran_ref":"TST123","payment_result":{"response_status":"A"}}`)

	mac := hmac.New(sha256.New, []byte("S6J9ZZZZZZ-TESTKEY"))
	mac.Write(body)
	valid := hex.EncodeToString(mac.Sum(nil))

	if !client.ValidateCallbackSignature(body, valid) {
		t.Fatal("expected a valid signature to pass")
	}
	if client.ValidateCallbackSignature(body, "deadbeef") {
		t.Fatal("expected a forged signature to fail")
	}
	if client.ValidateCallbackSignature([]byte("tampered"), valid) {
		t.Fatal("expected a tampered body to fail")
	}
	if !client.ValidateCallbackSignature(body, "") {
		t.Fatal("expected an absent signature to be accepted")
	}
}

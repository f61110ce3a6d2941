package helpers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Enrollment receipts are rendered as QR codes so a teacher can verify a
// student's purchase offline (in-person sessions, exams). The payload is
// purchase:<id>;course:<id>;signature:<hmac> signed with the app secret.

func GenerateReceiptSignature(purchaseID, courseID, userID uuid.UUID, secretKey string) string {
	data := fmt.Sprintf("%s:%s:%s", purchaseID.String(), courseID.String(), userID.String())
	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

func BuildReceiptData(purchaseID, courseID, userID uuid.UUID, secretKey string) string {
	signature := GenerateReceiptSignature(purchaseID, courseID, userID, secretKey)
	return fmt.Sprintf("purchase:%s;course:%s;signature:%s",
		purchaseID.String(),
		courseID.String(),
		signature,
	)
}

func ExtractPurchaseIDFromReceipt(receiptData string) (uuid.UUID, error) {
	parts := strings.Split(receiptData, ";")
	if len(parts) != 3 || !strings.HasPrefix(parts[0], "purchase:") || !strings.HasPrefix(parts[2], "signature:") {
		return uuid.Nil, fmt.Errorf("invalid receipt format")
	}
	return uuid.Parse(strings.TrimPrefix(parts[0], "purchase:"))
}

func ValidateReceiptSignature(purchaseID, courseID, userID uuid.UUID, receiptData, secretKey string) bool {
	parts := strings.Split(receiptData, ";")
	if len(parts) != 3 || !strings.HasPrefix(parts[2], "signature:") {
		return false
	}

	signature := strings.TrimPrefix(parts[2], "signature:")
	expected := GenerateReceiptSignature(purchaseID, courseID, userID, secretKey)
	return hmac.Equal([]byte(expected), []byte(signature))
}

package payments

import "errors"

var (
	// ErrAlreadyPurchased: the caller already owns an ACTIVE purchase.
	ErrAlreadyPurchased = errors.New("course already purchased")

	// ErrPurchaseInProgress: a PENDING purchase exists (or was created
	// concurrently) for the same user and course.
	ErrPurchaseInProgress = errors.New("purchase already in progress")

	// ErrPaymentInitiation: the gateway refused or failed to create a
	// payment link; the pending purchase has been rolled back.
	ErrPaymentInitiation = errors.New("payment initiation failed")

	// ErrPurchaseNotFound: no purchase with that id owned by the caller.
	ErrPurchaseNotFound = errors.New("purchase not found")

	// ErrPaymentNotFound: no payment matches the transaction reference.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrPaymentRecordMissing: a non-terminal purchase has no payment row.
	// This is a data-integrity fault, not something polling can fix.
	ErrPaymentRecordMissing = errors.New("payment record missing for purchase")

	// ErrMalformedCallback: webhook payload without a transaction reference.
	ErrMalformedCallback = errors.New("callback missing transaction reference")
)

package dto

import "github.com/google/uuid"

// LowBalanceAlert travels over the in-process alert topic from the
// ledger to the alert consumer.
type LowBalanceAlert struct {
	UserId    uuid.UUID `json:"user_id"`
	Balance   int       `json:"balance"`
	Threshold int       `json:"threshold"`
}

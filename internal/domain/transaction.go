package domain

import (
	"encoding/json"
	"errors"
)

// TxStatus is the remote transaction state as reported by the processor,
// parsed into a closed set at the boundary. Tags outside the documented
// set decode to TxOther with the raw string preserved.
type TxStatus string

const (
	TxPending    TxStatus = "pending"
	TxFailed     TxStatus = "failed"
	TxCancelled  TxStatus = "cancelled"
	TxSuccessful TxStatus = "successful"
	TxOther      TxStatus = "other"
)

// ErrVerificationTimeout means every verification attempt was exhausted
// without a usable response. The payment outcome is unknown, not negative.
var ErrVerificationTimeout = errors.New("verification timed out without a usable response")

func ParseTxStatus(raw string) TxStatus {
	switch raw {
	case "pending":
		return TxPending
	case "failed":
		return TxFailed
	case "cancelled":
		return TxCancelled
	case "successful", "success":
		return TxSuccessful
	default:
		return TxOther
	}
}

// HistoryEntry is one prior attempt in the processor's free-form log.
// Message may itself be a JSON document carrying the failure explanation.
type HistoryEntry struct {
	Message string `json:"message"`
}

type RemoteTransaction struct {
	Status          TxStatus
	RawStatus       string
	RequestedAmount float64
	Currency        string
	Reference       string
	History         []HistoryEntry
}

// Truthy reports whether the raw status tag would be treated as a
// successful outcome by the processor's loosely-typed contract. Only the
// empty string and "0" are falsy; any other tag, "false" included,
// counts as an affirmative answer.
func (t RemoteTransaction) Truthy() bool {
	switch t.RawStatus {
	case "", "0":
		return false
	}
	return true
}

// LastReason decodes the failure explanation from the newest history
// entry. The processor nests it either under error.explanation or as the
// first element of an errors array; anything else yields the fallback.
func (t RemoteTransaction) LastReason(fallback string) string {
	if len(t.History) == 0 {
		return fallback
	}
	var msg struct {
		Error struct {
			Explanation string `json:"explanation"`
		} `json:"error"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal([]byte(t.History[len(t.History)-1].Message), &msg); err != nil {
		return fallback
	}
	if msg.Error.Explanation != "" {
		return msg.Error.Explanation
	}
	if len(msg.Errors) > 0 && msg.Errors[0].Message != "" {
		return msg.Errors[0].Message
	}
	return fallback
}

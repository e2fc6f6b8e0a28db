package updater

import (
	"loyalty-analytics-go/internal/models"
)

// WalletDelta is the effect of one wallet change on the coin counters.
type WalletDelta struct {
	Coins  float64
	Active int64
}

func (d WalletDelta) IsZero() bool { return d.Coins == 0 && d.Active == 0 }

// WalletDeltas compares remaining balances. A missing image counts as a
// zero balance. Active is +1 when the balance crosses from zero to positive
// and -1 when it crosses back.
func WalletDeltas(oldImage, newImage models.Item) WalletDelta {
	oldBalance := oldImage.Decimal("remainingAmount")
	newBalance := newImage.Decimal("remainingAmount")

	d := WalletDelta{Coins: newBalance.Sub(oldBalance).InexactFloat64()}
	wasActive := oldBalance.IsPositive()
	isActive := newBalance.IsPositive()
	switch {
	case !wasActive && isActive:
		d.Active = 1
	case wasActive && !isActive:
		d.Active = -1
	}
	return d
}

// PendingDelta is the effect of one withdrawal change on the pending counters.
type PendingDelta struct {
	Count  int64
	Amount float64
}

func (d PendingDelta) IsZero() bool { return d.Count == 0 && d.Amount == 0 }

// WithdrawalDeltas applies the pending transition table:
//
//	entering pending:         (+1, +new amount)
//	leaving pending:          (-1, -old amount)
//	pending, amount changed:  ( 0, new - old)
//	otherwise:                ( 0, 0)
func WithdrawalDeltas(oldImage, newImage models.Item) PendingDelta {
	wasPending := models.IsPendingStatus(oldImage.String("status"))
	isPending := models.IsPendingStatus(newImage.String("status"))
	oldAmount := oldImage.Decimal("requestedAmount")
	newAmount := newImage.Decimal("requestedAmount")

	switch {
	case !wasPending && isPending:
		return PendingDelta{Count: 1, Amount: newAmount.InexactFloat64()}
	case wasPending && !isPending:
		return PendingDelta{Count: -1, Amount: oldAmount.Neg().InexactFloat64()}
	case wasPending && isPending && !oldAmount.Equal(newAmount):
		return PendingDelta{Amount: newAmount.Sub(oldAmount).InexactFloat64()}
	default:
		return PendingDelta{}
	}
}

// CountDelta is +1 for inserts, -1 for removals, and 0 for modifications.
func CountDelta(kind models.EventKind) int64 {
	switch kind {
	case models.EventInsert:
		return 1
	case models.EventRemove:
		return -1
	default:
		return 0
	}
}

// countedImage picks the image whose timestamp dates a counted record.
func countedImage(ev models.ChangeEvent) models.Item {
	if ev.Kind == models.EventRemove {
		return ev.OldImage
	}
	return ev.NewImage
}

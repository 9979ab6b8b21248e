package domain

import "github.com/google/uuid"

// CurrentActor identifies the business on whose behalf a ledger call is made.
// It is passed explicitly into every ledger operation; the core never resolves
// the caller from ambient or global state.
type CurrentActor struct {
	BusinessID uuid.UUID
	WalletIDs  []uuid.UUID // Wallets the actor is allowed to operate on; empty means any wallet owned by the business
}

// CanAccessWallet reports whether the actor may operate on the given wallet.
func (a CurrentActor) CanAccessWallet(w *Wallet) bool {
	if w == nil || w.BusinessID != a.BusinessID {
		return false
	}
	if len(a.WalletIDs) == 0 {
		return true
	}
	for _, id := range a.WalletIDs {
		if id == w.ID {
			return true
		}
	}
	return false
}

// SystemActor returns an actor scoped to a business with no wallet restriction.
// Used by the reconciliation gate and the payout reconciler, which act on
// provider confirmations rather than user requests.
func SystemActor(businessID uuid.UUID) CurrentActor {
	return CurrentActor{BusinessID: businessID}
}

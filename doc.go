// Package tierledger provides tiered VIP subscriptions bought with points and
// a quota-gated daily content distributor for Go applications.
//
// Tierledger is designed as a library, not a service. A chat bot or API
// imports it, calls the engine, and renders the results. It provides:
//
//   - Tier purchases with trade-in credit for the unexpired part of a lower tier
//   - A two-step quote and confirm flow driven by typed commands
//   - Daily delivery caps by tier with no item ever sent twice to a user
//   - Administrative overrides that never shorten an active subscription
//   - Likes and dislikes with a most-liked ranking
//   - Memory, SQLite, PostgreSQL and MongoDB stores
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/tierledger"
//	    "github.com/xraph/tierledger/store/memory"
//	)
//
//	l := tierledger.New(memory.New())
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
// # Tiers
//
// Levels run from 0 (no subscription) to 3. Prices come from a schedule of
// (level, days, points) rows, optionally tied to the level the buyer holds:
//
//	q, err := l.QuoteTransition(ctx, userID, tierledger.VIP2, 30)
//	// show q.Cost, then on confirmation:
//	r, err := l.ConfirmTransition(ctx, userID, tierledger.VIP2, 30)
//
// Renewing at the same level charges the full price and extends the current
// expiry. Upgrading charges the target price less the schedule value of the
// days left on the current tier, and the new term starts today. Lower levels
// cannot be bought while a higher level is on record, even after it lapsed.
//
// Confirm re-validates against the account as it stands at commit time.
// Quoted numbers are never trusted.
//
// # Distribution
//
//	d, err := l.RequestDistribution(ctx, userID)
//	switch {
//	case errors.Is(err, tierledger.ErrQuotaExceeded):
//	case errors.Is(err, tierledger.ErrNoItemsAvailable):
//	}
//
// Each level has a fixed daily cap (10, 30, 50 and 100 items). Items are
// picked uniformly from those the user has never received.
//
// # Concurrency
//
// Every write to an account is conditional on its version. Conflicting
// writes are retried from a fresh read a bounded number of times before
// failing with ErrTransactionFailed.
//
// # TypeID
//
// Entities use TypeID for globally unique, type-safe identifiers:
//
//	item_01h2xcejqtf2nbrexx3vqjhp41  // Catalog item
//	rcpt_01h2xcejqtf2nbrexx3vqjhp41  // Purchase receipt
package tierledger

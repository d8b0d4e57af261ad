// Package lockmgr implements owned locks on top of a store of the lock
// strategy. A lock is a key whose value is a random owner ID.
//
// The lockmgr only ever stores in the provided LockStore and has no other
// internal state. Therefore it is safe to be created multiple times on the
// same store, locks work as long as the same store is used every time.
//
// Implementation Approach:
//
//	- Lock Acquisition: Set of a lock store only succeeds if the key is not
//	  held, so exactly one of several concurrent requesters wins. The value is
//	  a randomly generated owner ID, the expiry releases the lock if its holder
//	  crashes.
//
//	- Renewal: RenewLock verifies the owner ID and then extends the expiry with
//	  an Update that keeps the value.
//
//	- Safe Release: ReleaseLock verifies the owner ID before the Delete.
//
// Ownership checks and the following Update or Delete are two requests. A lock
// that expires between them is released (or renewed) by the former owner.
// Choose ttls well above the request latency.
//
// Usage Example:
//
//	locks := lockmgr.NewLockManager(client.NewRPCStore(0, t, serializer.NewMsgpackSerializer()))
//
//	acquired, ownerID, err := locks.AcquireLock(ctx, "resource:123", 30)
//	if err != nil {
//	    // Handle error
//	}
//	if acquired {
//	    defer locks.ReleaseLock(ctx, "resource:123", ownerID)
//	    // Use the resource safely
//	}
package lockmgr

package lazylist

// Test hooks (kept separate so instrumentation doesn't clutter logic).
// They must not block and are nil outside tests.
var (
	// afterWindowHook runs after a lock-coupling traversal, before locking.
	afterWindowHook func(pred, curr any)

	// betweenReplacePhasesHook runs after both halves of a lock-coupling
	// replace and before its claim is released.
	betweenReplacePhasesHook func()

	// afterLogicalDeleteHook runs after a lock-free mark CAS succeeds,
	// before the opportunistic unlink.
	afterLogicalDeleteHook func(node any)
)

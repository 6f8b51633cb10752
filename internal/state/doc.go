// Package state holds the client-side caches and the user's selection.
//
// # Overview
//
// Everything the UI shows about server data comes from a Cache. The mutation
// layer edits caches optimistically and the background refresher replaces
// them with server truth. The SelectionStore records which habit, day and
// session the user is looking at; it is independent of server data.
//
// # Copy-on-Write
//
// A Cache never edits its stored value in place:
//
//	Write(transform):
//	  lock
//	  prev  := current            (returned as Snapshot)
//	  draft := clone(current)
//	  transform(&draft)
//	  current = draft
//	  unlock
//	  notify subscribers
//
// Readers holding an older value, and snapshots held for rollback, are
// therefore stable. Restore is a reference swap. A reader never observes a
// half-applied transform because the swap happens under the writer lock.
//
// When nothing is loaded yet, the transform receives an empty value (clone of
// the zero value) instead of failing.
//
// # Snapshot Isolation
//
// Write returns the value that was current immediately before that write.
// Two mutations in flight each hold their own snapshot:
//
//	A.Write -> snapA (before A)
//	B.Write -> snapB (contains A's edit)
//	B fails -> Restore(snapB)   A's edit survives
//
// # Refetch and Cancellation
//
// Refetch runs the configured fetcher and stores its result. CancelFetches
// cancels in-flight fetches and marks them discarded, so a response that
// arrives late cannot overwrite a newer optimistic edit. An older fetch that
// completes after a newer one is discarded as well. Refetch failures are
// counted in Status; two consecutive failures report IsOffline.
//
// # Concurrency Model
//
//   - Write, Restore, Set and the store step of Refetch take the write lock
//   - Read, View, Snapshot and Status take the read lock
//   - Network I/O never happens under a lock
//   - Subscribers are called outside the value lock, always with the latest value
//
// # Query Keys
//
//   - HistoryKey ("habit-logs"): tracker.History
//   - CatalogKey ("exercises"): tracker.Catalog
//
// # Testing Considerations
//
// New with a plain clone function is enough for unit tests; WithFetcher
// accepts any function, so fetch ordering can be driven from the test.
package state

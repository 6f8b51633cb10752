// Package mutation applies user actions to the caches optimistically.
//
// Every Coordinator method follows the same steps:
//
//  1. Check preconditions; nothing is written when they fail
//  2. Cancel in-flight history refetches
//  3. Write the optimistic edit and keep the snapshot Write returns
//  4. Send the request
//  5. On failure restore the snapshot, on success replace placeholders
//  6. Refetch the history (all kinds except CreateSession)
//
// The snapshot restored on failure is the one taken right before this
// mutation's own edit, so two mutations in flight never roll back each
// other's work. Placeholders are located by TempID inside the selected
// session only.
//
// Methods block until the mutation has settled. Callers that must stay
// responsive run them in a goroutine; the returned error is for status
// display, the cache is already consistent when it arrives.
package mutation

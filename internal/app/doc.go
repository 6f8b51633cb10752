// Package app is the composition root for Trackbit.
//
// # Overview
//
// Bootstrap wires configuration, logging, the session token, the tracker
// client, both caches, the selection store, the mutation coordinator and the
// view binding into a Services value. Every command (tui, check) starts from
// it.
//
// # Startup
//
//  1. Load ~/.config/trackbit/config.toml, then .env and the environment
//  2. Open the rotating JSON log under the configured log directory
//  3. Resolve the session token: environment first, then the OS keyring
//  4. Build the tracker client and the caches
//  5. Refresh once, restore the last selected habit from prefs
//  6. Launch the background poller and run the TUI until the user quits
//
// # Polling Behavior
//
// The poller refreshes history and the exercise catalog at the configured
// interval (default 30 seconds). Consecutive failures double the wait up to
// 30 seconds; the first success resets it. A refresh that overlaps a
// mutation is discarded by the cache, so polling never clobbers an
// optimistic edit.
//
// # Error Handling
//
// Configuration and logging failures are fatal and returned from Run. API
// failures during polling are logged and surface in the UI as the offline
// indicator.
package app

// Package config loads Trackbit's settings.
//
// # Resolution Order
//
// Later sources win:
//
//  1. Built-in defaults
//  2. ~/.config/trackbit/config.toml, or the path passed to Load
//  3. A .env file in the working directory
//  4. The process environment
//
// A missing config file or .env is not an error.
//
// # Default Values
//
//   - API URL: http://127.0.0.1:3000
//   - Session cookie name: connect.sid
//   - Log directory: ~/.local/state/trackbit
//   - Refresh interval: 30 seconds
//   - Request timeout: 10 seconds
//
// # TOML Format
//
//	api_url = "https://tracker.example.com"
//	session_cookie = "connect.sid"
//	log_dir = "~/.local/state/trackbit"
//	refresh_seconds = 30
//	request_timeout_seconds = 10
//	debug = false
//
// Every field is optional. Empty or non-positive values keep the default.
// log_dir gets tilde expansion.
//
// # Environment
//
//   - TRACKBIT_API_URL overrides api_url
//   - TRACKBIT_SESSION supplies the session token
//
// The session token is never read from config.toml. When TRACKBIT_SESSION is
// unset the caller falls back to the OS keyring (see internal/credentials).
package config

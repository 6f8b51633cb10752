// Package tracker provides the entity model and HTTP client for the tracker API.
//
// # Overview
//
// The tracker backend is a REST service over habits, day logs and the nested
// workout tree (session -> exercise log -> set). This package mirrors its JSON
// payloads as Go structs and issues the requests the client layer needs. It
// holds no state beyond connection settings.
//
// # Files
//
//   - types.go: entities, request bodies and date helpers
//   - history.go: the cached tree form (History, Catalog) and deep cloning
//   - client.go: HTTP client, the API interface and APIError
//
// # Cached Form
//
// /tracker/history returns an array of habits with nested day logs. The cache
// layer indexes it as:
//
//	History[habitID].DayLogs[date].ExerciseSessions[i].ExerciseLogs[j].ExercisePerformances[k]
//
// History.Clone copies every level so that callers can edit a draft without
// touching a value other readers hold. EnsureDayLog creates missing levels
// lazily; Session and DayLog resolve paths and return nil for any gap.
//
// # Placeholders
//
// Entities created optimistically carry a TempID and no ID. Once the server
// answers, the placeholder receives the real ID and its TempID is cleared.
// Pending reports which state an entity is in.
//
// # Requests
//
// All requests:
//   - Use context for cancellation
//   - Send the session cookie when one is configured
//   - Set Accept: application/json and a trackbit User-Agent
//   - Return *APIError for non-2xx statuses, with the body's message field
//
// Example error messages:
//   - "execute request: dial tcp: connection refused"
//   - "api DELETE /tracker/exercise-sessions/4 returned status 404: session not found"
//   - "decode response: unexpected end of JSON input"
//
// The client does not retry. A 404 is reported like any other failure;
// IsNotFound is available for callers that care.
//
// # Testing
//
// The trackertest subpackage runs an in-memory backend on httptest with the
// same routes, including per-route failure injection.
package tracker

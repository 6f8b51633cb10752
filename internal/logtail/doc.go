// Package logtail reads the end of Trackbit's log file for the activity pane.
//
// # Reading
//
// Read returns the last maxLines of a file using a ring buffer of maxLines
// entries, so memory stays O(maxLines) regardless of file size:
//
//	1. Allocate ring buffer of size maxLines
//	2. For each line: store at idx, advance idx modulo maxLines
//	3. Fewer lines than maxLines: return the filled prefix
//	4. Otherwise: return the buffer starting at idx (the oldest line)
//
// A non-positive maxLines returns the whole file.
//
// # Parsing
//
// The logger writes one JSON object per line (see internal/logging). Parse
// splits the well-known keys (time, level, prefix, msg) from the remaining
// fields. Lines that are not JSON, such as a panic trace appended to the
// file, are kept verbatim in Entry.Raw.
//
// # Error Handling
//
// A missing file is not an error; Read returns nil, nil. Other I/O errors
// are wrapped. Parse never fails.
package logtail

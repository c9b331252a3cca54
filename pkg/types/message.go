package types

// SplitMessage is the queue payload carrying one audio file from the API to
// the split worker. Immutable once published; the worker may receive it more
// than once under redelivery.
type SplitMessage struct {
	MessageID   string `json:"message_id"`   // UUID for log correlation
	FileID      int64  `json:"file_id"`      // target files_info record
	FileHash    string `json:"file_hash"`    // SHA-256 of the raw content
	Filename    string `json:"filename"`     // original name, drives extension
	FileContent string `json:"file_content"` // base64 encoded raw bytes
}

package backend

import "encoding/json"

// Turn is one conversation turn sent back to the backend as context.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AskRequest asks a natural-language question about a dataset.
type AskRequest struct {
	ClientID   string `json:"client_id"`
	SessionID  string `json:"session_id,omitempty"`
	DatasetID  string `json:"dataset_id"`
	Question   string `json:"question"`
	History    []Turn `json:"history,omitempty"`
	SchemaHint string `json:"schema_hint,omitempty"`
}

// AskResult carries the tabular part of an answer. Rows and Columns are kept
// raw because the backend is not consistent about their shape; the normalizer
// resolves them once.
type AskResult struct {
	Rows    json.RawMessage `json:"rows,omitempty"`
	Columns json.RawMessage `json:"columns,omitempty"`
}

// AskResponse is the raw answer payload.
type AskResponse struct {
	Query       string          `json:"query,omitempty"`
	Result      AskResult       `json:"result,omitempty"`
	Chart       json.RawMessage `json:"chart,omitempty"`
	Summary     string          `json:"summary,omitempty"`
	Message     string          `json:"message,omitempty"`
	SessionID   string          `json:"session_id,omitempty"`
	SessionName string          `json:"session_name,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// TranscriptEntry is one turn of the server-side transcript. The server keeps
// text and generated query only; rows and charts are reconstructed locally.
type TranscriptEntry struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
	Query     string `json:"query,omitempty"`
}

// LoadSessionRequest fetches a session transcript.
type LoadSessionRequest struct {
	SessionID string `json:"session_id"`
	ClientID  string `json:"client_id"`
	DatasetID string `json:"dataset_id"`
}

// LoadSessionResponse is the transcript payload.
type LoadSessionResponse struct {
	Session *struct {
		Name string `json:"name"`
	} `json:"session,omitempty"`
	Messages []TranscriptEntry `json:"messages"`
	Error    string            `json:"error,omitempty"`
}

// CreateSessionRequest pre-creates an empty session.
type CreateSessionRequest struct {
	ClientID  string `json:"client_id"`
	DatasetID string `json:"dataset_id"`
}

// CreateSessionResponse carries the server-assigned session id.
type CreateSessionResponse struct {
	Session struct {
		SessionID string `json:"session_id"`
	} `json:"session"`
	Error string `json:"error,omitempty"`
}

// SessionInfo is one entry of the session roster.
type SessionInfo struct {
	SessionID    string `json:"session_id"`
	Name         string `json:"name"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	MessageCount int    `json:"message_count"`
}

// ListSessionsRequest fetches the session roster for a (client, dataset) pair.
type ListSessionsRequest struct {
	ClientID  string `json:"client_id"`
	DatasetID string `json:"dataset_id"`
}

// ListSessionsResponse is the roster payload.
type ListSessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
	Error    string        `json:"error,omitempty"`
}

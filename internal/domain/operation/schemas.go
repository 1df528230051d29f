package operation

// Request/response schema types for the workspace operation inventory.
// Parameter lists are derived from these structs; tools never redeclare them.

// CreateCasefileRequest opens a new casefile in the caller's workspace.
type CreateCasefileRequest struct {
	Title       string `json:"title" doc:"Casefile title" minlen:"1" maxlen:"200"`
	Description string `json:"description,omitempty" doc:"Free-form description" default:""`
}

// CreateCasefileResponse reports the created record.
type CreateCasefileResponse struct {
	CasefileID string `json:"casefile_id"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

// GetCasefileRequest fetches a casefile by id.
type GetCasefileRequest struct {
	CasefileID string `json:"casefile_id" doc:"Casefile identifier" minlen:"1"`
}

// GetCasefileResponse is the full casefile view.
type GetCasefileResponse struct {
	CasefileID  string `json:"casefile_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	OwnerID     string `json:"owner_id"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// UpdateCasefileRequest changes mutable casefile fields. Omitted fields are
// left untouched.
type UpdateCasefileRequest struct {
	CasefileID  string `json:"casefile_id" doc:"Casefile identifier" minlen:"1"`
	Title       string `json:"title,omitempty" doc:"New title" maxlen:"200"`
	Description string `json:"description,omitempty" doc:"New description"`
	Priority    string `json:"priority,omitempty" doc:"New priority" enum:"low,medium,high,urgent"`
	Status      string `json:"status,omitempty" doc:"New status" enum:"open,closed"`
}

// UpdateCasefileResponse reports the update. PreviousPriority carries the
// pre-update value so composite rollbacks can restore it.
type UpdateCasefileResponse struct {
	CasefileID       string `json:"casefile_id"`
	Updated          bool   `json:"updated"`
	UpdatedAt        string `json:"updated_at"`
	PreviousPriority string `json:"previous_priority"`
}

// CloseCasefileRequest closes an open casefile.
type CloseCasefileRequest struct {
	CasefileID string `json:"casefile_id" doc:"Casefile identifier" minlen:"1"`
	Reason     string `json:"reason,omitempty" doc:"Closure reason" default:""`
}

// CloseCasefileResponse reports the closure.
type CloseCasefileResponse struct {
	CasefileID string `json:"casefile_id"`
	Status     string `json:"status"`
	ClosedAt   string `json:"closed_at"`
}

// ListCasefilesRequest pages through workspace casefiles.
type ListCasefilesRequest struct {
	Status string `json:"status,omitempty" doc:"Filter by status" enum:"open,closed,archived"`
	Limit  int    `json:"limit,omitempty" doc:"Page size" min:"1" max:"100" default:"20"`
	Offset int    `json:"offset,omitempty" doc:"Page offset" min:"0" default:"0"`
}

// ListCasefilesResponse is a page of casefile views.
type ListCasefilesResponse struct {
	Items []GetCasefileResponse `json:"items"`
	Total int                   `json:"total"`
}

// AddCasefileNoteRequest appends a note to a casefile.
type AddCasefileNoteRequest struct {
	CasefileID string `json:"casefile_id" doc:"Casefile identifier" minlen:"1"`
	Body       string `json:"body" doc:"Note body" minlen:"1" maxlen:"10000"`
}

// AddCasefileNoteResponse reports the appended note.
type AddCasefileNoteResponse struct {
	NoteID    string `json:"note_id"`
	CreatedAt string `json:"created_at"`
}

// ArchiveCasefileRequest belongs to the deprecated archive operation, kept
// for callers that have not migrated to close_casefile yet.
type ArchiveCasefileRequest struct {
	CasefileID string `json:"casefile_id" doc:"Casefile identifier" minlen:"1"`
}

// ArchiveCasefileResponse reports the archived record.
type ArchiveCasefileResponse struct {
	CasefileID string `json:"casefile_id"`
	Status     string `json:"status"`
}

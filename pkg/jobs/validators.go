package jobs

type CreateJobPayload struct {
	Type      string `json:"type" validate:"required,oneof=scan refresh"`
	LibraryID *int   `json:"library_id,omitempty" validate:"required_if=Type scan"`
	ShowID    *int   `json:"show_id,omitempty" validate:"required_if=Type refresh"`
}

type ListJobsQuery struct {
	Limit     int      `query:"limit" json:"limit,omitempty" default:"10" validate:"min=1,max=100"`
	Offset    int      `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Status    []string `query:"status" json:"status,omitempty" validate:"dive,oneof=pending in_progress completed failed"`
	Type      *string  `query:"type" json:"type,omitempty" validate:"omitempty,oneof=scan refresh"`
	LibraryID *int     `query:"library_id" json:"library_id,omitempty"`
}

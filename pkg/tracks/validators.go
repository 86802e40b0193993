package tracks

type ListTracksQuery struct {
	Limit   int     `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=500"`
	Offset  int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	EntryID *int    `query:"entry_id" json:"entry_id,omitempty" validate:"omitempty,min=1"`
	Type    *string `query:"type" json:"type,omitempty" validate:"omitempty,oneof=video audio subtitle"`
}

type CreateTrackPayload struct {
	EntryID    int     `json:"entry_id" validate:"required,min=1"`
	Type       string  `json:"type" validate:"required,oneof=video audio subtitle"`
	Language   *string `json:"language,omitempty" validate:"omitempty,max=10"`
	Codec      string  `json:"codec" validate:"required,max=50"`
	Title      *string `json:"title,omitempty" validate:"omitempty,max=300"`
	IsDefault  bool    `json:"is_default"`
	IsForced   bool    `json:"is_forced"`
	IsExternal bool    `json:"is_external"`
	Path       *string `json:"path,omitempty"`
}

type UpdateTrackPayload struct {
	EntryID    *int    `json:"entry_id,omitempty" validate:"omitempty,min=1"`
	Type       *string `json:"type,omitempty" validate:"omitempty,oneof=video audio subtitle"`
	Language   *string `json:"language,omitempty" validate:"omitempty,max=10"`
	Codec      *string `json:"codec,omitempty" validate:"omitempty,max=50"`
	Title      *string `json:"title,omitempty" validate:"omitempty,max=300"`
	IsDefault  *bool   `json:"is_default,omitempty"`
	IsForced   *bool   `json:"is_forced,omitempty"`
	TrackIndex *int    `json:"track_index,omitempty" validate:"omitempty,min=0"`
}

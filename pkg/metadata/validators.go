package metadata

type SearchQuery struct {
	Query     string `query:"q" json:"q" validate:"required,max=200"`
	LibraryID *int   `query:"library_id" json:"library_id,omitempty" validate:"omitempty,min=1"`
}

type ProviderInfo struct {
	Slug string `json:"slug"`
	// Functions lists the resource kinds a script provider implements. It is empty
	// for built-in providers.
	Functions []string `json:"functions,omitempty"`
}

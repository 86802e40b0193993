package libraries

type ProviderPayload struct {
	Slug    string `json:"slug" validate:"required,max=100"`
	Enabled *bool  `json:"enabled,omitempty"`
}

type CreateLibraryPayload struct {
	Name         string            `json:"name" validate:"required,max=100"`
	Slug         string            `json:"slug,omitempty" validate:"omitempty,slug"`
	LibraryPaths []string          `json:"library_paths" validate:"required,min=1,max=50,dive"`
	Providers    []ProviderPayload `json:"providers,omitempty" validate:"max=50,dive"`
}

type ListLibrariesQuery struct {
	Limit  int `query:"limit" json:"limit,omitempty" default:"10" validate:"min=1,max=100"`
	Offset int `query:"offset" json:"offset,omitempty" validate:"min=0"`
}

type UpdateLibraryPayload struct {
	Name         *string           `json:"name,omitempty" validate:"omitempty,max=100"`
	Slug         *string           `json:"slug,omitempty" validate:"omitempty,slug"`
	LibraryPaths []string          `json:"library_paths,omitempty" validate:"omitempty,min=1,max=50,dive"`
	Providers    []ProviderPayload `json:"providers,omitempty" validate:"omitempty,max=50,dive"`
}

package identifier

type IdentifyQuery struct {
	Path string `query:"path" json:"path" validate:"required"`
}

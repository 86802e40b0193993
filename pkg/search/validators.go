package search

import "github.com/shishobooks/kino/pkg/models"

type GlobalSearchQuery struct {
	Query string `query:"q" json:"q" validate:"required,min=1,max=100"`
}

type GlobalSearchResponse struct {
	Shows       []*models.Show       `json:"shows"`
	Collections []*models.Collection `json:"collections"`
	Studios     []*models.Studio     `json:"studios"`
	People      []*models.Person     `json:"people"`
}

package model

import "time"

// ExtractResponse is the 200 body of GET /api/extract.
type ExtractResponse struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	Location    string    `json:"location"`
	Images      []string  `json:"images"`
	ExtractedAt time.Time `json:"extractedAt"`
}

// ErrorResponse is the body of every non-200 answer of GET /api/extract.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (r ExtractResponse) Result(sourceURL string) Result {
	images := r.Images
	if images == nil {
		images = []string{}
	}
	return Result{
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price,
		Location:    r.Location,
		Images:      images,
		SourceURL:   sourceURL,
		Timestamp:   r.ExtractedAt,
	}
}

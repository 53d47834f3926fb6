package tfe

import "fmt"

// MediaType is the content type of every TFE v2 request and response.
const MediaType = "application/vnd.api+json"

// Document is a JSON:API collection response.
type Document struct {
	Data  []ResourceObject `json:"data"`
	Links Links            `json:"links"`
	Meta  *Meta            `json:"meta,omitempty"`
}

// ResourceObject is one JSON:API resource. Attribute keys are kebab-case.
type ResourceObject struct {
	ID         string                 `json:"id" bson:"_id"`
	Type       string                 `json:"type" bson:"type"`
	Attributes map[string]interface{} `json:"attributes" bson:"attributes"`
}

type Links struct {
	Self  string  `json:"self"`
	First string  `json:"first"`
	Prev  *string `json:"prev"`
	Next  *string `json:"next"`
	Last  string  `json:"last"`
}

type Meta struct {
	Pagination *PaginationMeta `json:"pagination,omitempty"`
}

// PaginationMeta is the TFE pagination block.
type PaginationMeta struct {
	CurrentPage int  `json:"current-page"`
	NextPage    *int `json:"next-page"`
	PageSize    int  `json:"page-size"`
	PrevPage    *int `json:"prev-page"`
	TotalCount  int  `json:"total-count"`
	TotalPages  int  `json:"total-pages"`
}

// ErrorDocument is the JSON:API error envelope.
type ErrorDocument struct {
	Errors []ErrorObject `json:"errors"`
}

type ErrorObject struct {
	Status string `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

// APIError is returned for non-2xx responses that map to no sentinel error.
type APIError struct {
	StatusCode int
	Title      string
	Detail     string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("tfe api returned status %d", e.StatusCode)
	if e.Title != "" {
		msg += ": " + e.Title
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

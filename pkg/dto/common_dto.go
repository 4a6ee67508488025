package dto

import "io"

type PaginationMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

func NewPaginationMeta(page, limit int, total int64) PaginationMeta {
	pages := 0
	if limit > 0 {
		pages = int(total) / limit
		if int(total)%limit != 0 {
			pages++
		}
	}
	return PaginationMeta{Page: page, Limit: limit, Total: total, Pages: pages}
}

// ImageFile is an uploaded image waiting to be pushed to storage.
type ImageFile struct {
	Reader   io.Reader
	FileName string
}

type MessageResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"msg,omitempty"`
}

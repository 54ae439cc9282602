package response

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Paginated is the standard page envelope for list endpoints.
type Paginated struct {
	Items    interface{} `json:"items"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Pages    int         `json:"pages"`
}

// NewPaginated builds a page envelope, deriving the page count.
func NewPaginated(items interface{}, total, page, pageSize int) Paginated {
	pages := 0
	if pageSize > 0 {
		pages = (total + pageSize - 1) / pageSize
	}
	return Paginated{Items: items, Total: total, Page: page, PageSize: pageSize, Pages: pages}
}

// PageParams parses page/page_size query params with bounds (max 100).
func PageParams(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

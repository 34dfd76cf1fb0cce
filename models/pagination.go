package models

// PageInfo carries normalized paging parameters for listing queries.
type PageInfo struct {
	Page     int
	PageSize int
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// NewPageInfo clamps raw query values into a usable range.
func NewPageInfo(page, pageSize int) *PageInfo {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	return &PageInfo{Page: page, PageSize: pageSize}
}

// GetStartIdx returns the query offset.
func (p *PageInfo) GetStartIdx() int {
	return (p.Page - 1) * p.PageSize
}

// GetPageSize returns the query limit.
func (p *PageInfo) GetPageSize() int {
	return p.PageSize
}

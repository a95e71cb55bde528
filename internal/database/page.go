package database

// PageFilter is embedded by list filters.
type PageFilter struct {
	Page     int
	PageSize int
}

func (f *PageFilter) Offset() int {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	if f.PageSize > 200 {
		f.PageSize = 200
	}
	return (f.Page - 1) * f.PageSize
}

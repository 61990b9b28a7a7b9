package common

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

func NewSuccessResponse(data interface{}) *SuccessResponse {
	return &SuccessResponse{
		Success: true,
		Data:    data,
	}
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{
		Message: message,
	}
}

// ListResponse is the paginated envelope: total is the full match count,
// count the size of this page.
type ListResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Total   int64       `json:"total"`
	Count   int         `json:"count"`
	Offset  int         `json:"offset"`
	Limit   int         `json:"limit"`
}

func NewListResponse(data interface{}, total int64, count, offset, limit int) *ListResponse {
	return &ListResponse{
		Success: true,
		Data:    data,
		Total:   total,
		Count:   count,
		Offset:  offset,
		Limit:   limit,
	}
}

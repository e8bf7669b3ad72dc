package handler

// Response is the success envelope for webhook and debug endpoints. Errors
// use the middleware.ErrorResponse envelope instead.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Success: true,
		Data:    data,
	}
}

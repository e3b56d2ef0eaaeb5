package types

// GeneratePayLinkRequest maps to Paddle's classic generate_pay_link API.
type GeneratePayLinkRequest struct {
	VendorID       string `json:"vendor_id"`
	VendorAuthCode string `json:"vendor_auth_code"`
	Title          string `json:"title"`
	CustomMessage  string `json:"custom_message,omitempty"`
	Prices         string `json:"prices"`
	CustomerEmail  string `json:"customer_email"`
	Passthrough    string `json:"passthrough,omitempty"`
	ReturnURL      string `json:"return_url,omitempty"`
}

type GeneratePayLinkResponse struct {
	Success  bool `json:"success"`
	Response struct {
		URL string `json:"url"`
	} `json:"response"`
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// PayLinkPassthrough is the custom data threaded through checkout so that
// webhook alerts can be tied back to the purchased course.
type PayLinkPassthrough struct {
	CourseID string `json:"course_id"`
}

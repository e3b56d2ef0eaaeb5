package types

// InitializeCheckoutRequest starts a course purchase. The pay link is
// generated by the billing provider; the buyer completes payment there.
type InitializeCheckoutRequest struct {
	Email       string `json:"email" validate:"required,email"`
	CourseID    string `json:"course_id" validate:"required"`
	Amount      string `json:"amount" validate:"required"`
	Currency    string `json:"currency" validate:"required,len=3"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type InitializeCheckoutResponse struct {
	Success bool   `json:"success"`
	PayURL  string `json:"pay_url"`
}

// PaymentAcceptedEvent is published through the outbox once a webhook has
// been verified and persisted. Consumed by the enrollment worker.
type PaymentAcceptedEvent struct {
	Reference    string `json:"reference"`
	Provider     string `json:"provider"`
	EventID      string `json:"event_id"`
	Email        string `json:"email"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	CourseID     string `json:"course_id,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
}

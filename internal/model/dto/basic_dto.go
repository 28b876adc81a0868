package dto

// ContactRequest 联系表单
type ContactRequest struct {
	Name    string `json:"name" binding:"required,max=100"`
	Email   string `json:"email" binding:"required,email,max=254"`
	Subject string `json:"subject" binding:"required,max=150"`
	Content string `json:"content" binding:"required,max=5000"`
}

// NewsletterRequest 订阅邮件
type NewsletterRequest struct {
	Email string `json:"email" binding:"required,email,max=254"`
}

// NewsletterResponse 订阅结果
type NewsletterResponse struct {
	Email  string `json:"email"`
	Status string `json:"status"`
}

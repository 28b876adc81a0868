package dto

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=254"`
	Password  string `json:"password" binding:"required,min=8,max=64"`
	FirstName string `json:"first_name" binding:"max=30"`
	LastName  string `json:"last_name" binding:"max=150"`
	Website   string `json:"website" binding:"omitempty,url,max=200"`
}

// RegisterResponse 注册响应
type RegisterResponse struct {
	UserID string `json:"user_id"`
	Avatar string `json:"avatar"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	User         *UserInfo `json:"user"`
}

// RefreshRequest 刷新令牌请求
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UserInfo 用户信息（返回给前端）
type UserInfo struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Avatar    string `json:"avatar"`
	Website   string `json:"website"`
	IsStaff   bool   `json:"is_staff"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at,omitempty"`
}

// UserBrief 嵌入在评论、文章中的用户信息
type UserBrief struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Avatar    string `json:"avatar"`
	Website   string `json:"website,omitempty"`
}

// UpdateProfileRequest 更新用户信息请求
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name,omitempty" binding:"omitempty,max=30"`
	LastName  *string `json:"last_name,omitempty" binding:"omitempty,max=150"`
	Website   *string `json:"website,omitempty" binding:"omitempty,max=200"`
	Password  *string `json:"password,omitempty" binding:"omitempty,min=8,max=64"`
	IsStaff   *bool   `json:"is_staff,omitempty"`  // 仅管理员
	IsActive  *bool   `json:"is_active,omitempty"` // 仅管理员
}

// UserListRequest 用户列表参数
type UserListRequest struct {
	Page     int `form:"page,default=1"`
	PageSize int `form:"page_size,default=20"`
}

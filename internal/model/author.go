package model

import "strings"

// Author 评论作者：注册用户 (*User) 或匿名作者 (*UnregisteredAuthor)
type Author interface {
	AuthorEmail() string
	AuthorName() string
	AvatarKey() string
	AuthorWebsite() string
	IsRegistered() bool
}

// UnregisteredAuthor 未注册作者，以 JSON 形式内嵌在评论中
type UnregisteredAuthor struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar,omitempty"`
	Website     string `json:"website,omitempty"`
}

func (a *UnregisteredAuthor) AuthorEmail() string { return a.Email }

func (a *UnregisteredAuthor) AuthorName() string { return a.DisplayName }

func (a *UnregisteredAuthor) AvatarKey() string { return a.Avatar }

func (a *UnregisteredAuthor) AuthorWebsite() string { return a.Website }

func (a *UnregisteredAuthor) IsRegistered() bool { return false }

// NormalizeEmail 比较邮箱前统一大小写和空白
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

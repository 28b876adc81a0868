package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           string    `gorm:"type:char(36);primaryKey" json:"id"`
	Email        string    `gorm:"size:254;uniqueIndex;not null" json:"email"`
	FirstName    string    `gorm:"size:30" json:"first_name"`
	LastName     string    `gorm:"size:150" json:"last_name"`
	PasswordHash *string   `gorm:"size:255" json:"-"`
	Avatar       string    `gorm:"size:500" json:"-"` // 存储 key，展示时解析为 URL
	Website      string    `gorm:"size:200" json:"website"`
	GithubID     *string   `gorm:"column:github_id;size:50;uniqueIndex" json:"-"`
	IsStaff      bool      `gorm:"not null" json:"is_staff"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = newID()
	}
	return nil
}

// FullName 姓名拼接
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) AuthorEmail() string { return u.Email }

// AuthorName 没有填写名字时使用邮箱前缀
func (u *User) AuthorName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if i := strings.Index(u.Email, "@"); i > 0 {
		return u.Email[:i]
	}
	return u.Email
}

func (u *User) AvatarKey() string { return u.Avatar }

func (u *User) AuthorWebsite() string { return u.Website }

func (u *User) IsRegistered() bool { return true }

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/pec_go_server/config"
	"github.com/qs3c/pec_go_server/internal/model"
	"github.com/qs3c/pec_go_server/internal/model/dto"
	"github.com/qs3c/pec_go_server/internal/pkg/avatar"
	"github.com/qs3c/pec_go_server/internal/pkg/jwt"
	"github.com/qs3c/pec_go_server/internal/pkg/logger"
	"github.com/qs3c/pec_go_server/internal/pkg/oauth"
	"github.com/qs3c/pec_go_server/internal/repository"
)

var (
	ErrEmailExists         = errors.New("邮箱已被注册")
	ErrInvalidCredentials  = errors.New("邮箱或密码错误")
	ErrUserInactive        = errors.New("账号已被停用")
	ErrUserNotFound        = errors.New("用户不存在")
	ErrInvalidRefreshToken = errors.New("刷新令牌无效")
	ErrInvalidOAuthState   = errors.New("授权状态无效或已过期")
	ErrGithubEmailRequired = errors.New("GitHub 账号没有可用的邮箱")
)

type AuthService struct {
	userRepo    *repository.UserRepository
	avatars     *avatar.Resolver
	presenter   *Presenter
	cfg         *config.Config
	githubOAuth *oauth.GithubOAuth
	states      *oauth.StateStore
}

func NewAuthService(
	userRepo *repository.UserRepository,
	avatars *avatar.Resolver,
	presenter *Presenter,
	states *oauth.StateStore,
	cfg *config.Config,
) *AuthService {
	gh := cfg.OAuth.Github
	githubOAuth := oauth.NewGithubOAuth(gh.ClientID, gh.ClientSecret, gh.RedirectURI)
	if gh.ServerURL != "" {
		githubOAuth.WithServer(gh.ServerURL)
	}
	if gh.APIURL != "" {
		githubOAuth.WithAPIBase(gh.APIURL)
	}

	return &AuthService{
		userRepo:    userRepo,
		avatars:     avatars,
		presenter:   presenter,
		cfg:         cfg,
		githubOAuth: githubOAuth,
		states:      states,
	}
}

// HashPassword bcrypt 加密
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Register 用户注册，尝试从 gravatar 获取头像
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	email := model.NormalizeEmail(req.Email)

	exists, err := s.userRepo.ExistsByEmail(email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Website:      strings.TrimSpace(req.Website),
		PasswordHash: &hashed,
		IsActive:     true,
	}
	avatarURL, key := s.avatars.Resolve(ctx, user)
	user.Avatar = key

	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	logger.For(ctx).WithField("user_id", user.ID).Info("user registered")
	return &dto.RegisterResponse{UserID: user.ID, Avatar: avatarURL}, nil
}

// CreateStaff 创建管理员；邮箱已存在时提升为管理员并重置密码
func (s *AuthService) CreateStaff(ctx context.Context, email, password, firstName string) (*dto.UserInfo, error) {
	email = model.NormalizeEmail(email)
	hashed, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(email)
	switch {
	case err == nil:
		user.IsStaff = true
		user.IsActive = true
		user.PasswordHash = &hashed
		if firstName != "" {
			user.FirstName = firstName
		}
		err = s.userRepo.Update(user)
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = &model.User{
			Email:        email,
			FirstName:    firstName,
			PasswordHash: &hashed,
			IsStaff:      true,
			IsActive:     true,
		}
		err = s.userRepo.Create(user)
	}
	if err != nil {
		return nil, err
	}

	logger.For(ctx).WithField("user_id", user.ID).Info("staff account ready")
	return s.presenter.UserInfo(user), nil
}

// Login 用户登录
func (s *AuthService) Login(req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(model.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	return s.issueTokens(user)
}

// Refresh 使用刷新令牌换取新的令牌对
func (s *AuthService) Refresh(req *dto.RefreshRequest) (*dto.LoginResponse, error) {
	claims, err := jwt.ParseToken(req.RefreshToken, s.cfg.JWT.Secret)
	if err != nil || claims.TokenType != jwt.TypeRefresh {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	return s.issueTokens(user)
}

func (s *AuthService) issueTokens(user *model.User) (*dto.LoginResponse, error) {
	token, err := jwt.GenerateToken(user.ID, user.IsStaff, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}
	refresh, err := jwt.GenerateRefreshToken(user.ID, user.IsStaff, s.cfg.JWT.Secret, s.cfg.JWT.RefreshHours)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		Token:        token,
		RefreshToken: refresh,
		User:         s.presenter.UserInfo(user),
	}, nil
}

// GetGithubAuthURL 生成 state 并返回 GitHub 授权 URL
func (s *AuthService) GetGithubAuthURL(ctx context.Context, redirectURI string) (string, error) {
	state, err := s.states.Issue(ctx, oauth.ProviderGithub, redirectURI)
	if err != nil {
		return "", err
	}
	return s.githubOAuth.GetAuthURL(state), nil
}

// GithubCallback 处理 GitHub OAuth 回调，返回令牌和授权前记录的跳转地址
func (s *AuthService) GithubCallback(ctx context.Context, code, state string) (*dto.LoginResponse, string, error) {
	pending, err := s.states.Consume(ctx, oauth.ProviderGithub, state)
	if err != nil {
		if errors.Is(err, oauth.ErrStateMissing) || errors.Is(err, oauth.ErrStateInvalid) {
			return nil, "", ErrInvalidOAuthState
		}
		return nil, "", err
	}

	token, err := s.githubOAuth.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("failed to exchange code: %w", err)
	}

	githubUser, err := s.githubOAuth.GetUser(ctx, token)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get github user: %w", err)
	}

	user, err := s.findOrCreateGithubUser(ctx, githubUser)
	if err != nil {
		return nil, "", err
	}
	if !user.IsActive {
		return nil, "", ErrUserInactive
	}

	resp, err := s.issueTokens(user)
	return resp, pending.RedirectURI, err
}

// findOrCreateGithubUser 依次按 GitHub ID、邮箱查找用户，都不存在时创建
func (s *AuthService) findOrCreateGithubUser(ctx context.Context, gh *oauth.GithubUser) (*model.User, error) {
	githubID := fmt.Sprintf("%d", gh.ID)

	user, err := s.userRepo.GetByGithubID(githubID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	email := model.NormalizeEmail(gh.Email)
	if email == "" {
		return nil, ErrGithubEmailRequired
	}

	// 已用邮箱注册的账号直接关联
	user, err = s.userRepo.GetByEmail(email)
	if err == nil {
		if err := s.userRepo.UpdateFields(user.ID, map[string]interface{}{"github_id": githubID}); err != nil {
			return nil, err
		}
		user.GithubID = &githubID
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	first, last := gh.SplitName()
	user = &model.User{
		Email:     email,
		FirstName: first,
		LastName:  last,
		Website:   gh.Blog,
		GithubID:  &githubID,
		IsActive:  true,
	}
	_, user.Avatar = s.avatars.Resolve(ctx, user)
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.For(ctx).WithField("user_id", user.ID).Info("user created from github")
	return user, nil
}

package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/qs3c/pec_go_server/internal/model/dto"
	"github.com/qs3c/pec_go_server/internal/pkg/avatar"
	"github.com/qs3c/pec_go_server/internal/pkg/logger"
	"github.com/qs3c/pec_go_server/internal/repository"
)

const userAvatarPrefix = "avatars/users"

type UserService struct {
	userRepo    *repository.UserRepository
	commentRepo *repository.CommentRepository
	uploads     *UploadService
	index       *IndexService
	presenter   *Presenter
}

func NewUserService(
	userRepo *repository.UserRepository,
	commentRepo *repository.CommentRepository,
	uploads *UploadService,
	index *IndexService,
	presenter *Presenter,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		commentRepo: commentRepo,
		uploads:     uploads,
		index:       index,
		presenter:   presenter,
	}
}

// List 用户列表，仅管理员
func (s *UserService) List(actor Actor, req *dto.UserListRequest) ([]*dto.UserInfo, int64, error) {
	if !actor.IsStaff {
		return nil, 0, ErrPermissionDenied
	}

	users, total, err := s.userRepo.List(req.Page, req.PageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.UserInfo, 0, len(users))
	for _, u := range users {
		items = append(items, s.presenter.UserInfo(u))
	}
	return items, total, nil
}

// Get 管理员或本人
func (s *UserService) Get(actor Actor, id string) (*dto.UserInfo, error) {
	if !actor.CanAccess(id) {
		return nil, ErrPermissionDenied
	}

	user, err := s.userRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.presenter.UserInfo(user), nil
}

// Update 更新用户信息；is_staff、is_active 只有管理员能修改，其他人提交时忽略
func (s *UserService) Update(actor Actor, id string, req *dto.UpdateProfileRequest) (*dto.UserInfo, error) {
	if !actor.CanAccess(id) {
		return nil, ErrPermissionDenied
	}

	user, err := s.userRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Website != nil {
		user.Website = strings.TrimSpace(*req.Website)
	}
	if req.Password != nil {
		hashed, err := HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = &hashed
	}
	if actor.IsStaff {
		if req.IsStaff != nil {
			user.IsStaff = *req.IsStaff
		}
		if req.IsActive != nil {
			user.IsActive = *req.IsActive
		}
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return s.presenter.UserInfo(user), nil
}

// Delete 删除用户及其评论，仅管理员
func (s *UserService) Delete(ctx context.Context, actor Actor, id string) error {
	if !actor.IsStaff {
		return ErrPermissionDenied
	}

	user, err := s.userRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	targets, err := s.commentRepo.ListTargetsByAuthor(user.ID)
	if err != nil {
		return err
	}
	if err := s.userRepo.Delete(user.ID); err != nil {
		return err
	}

	for _, target := range targets {
		if err := s.index.SaveRecord(ctx, target.ContentType, target.ObjectID, ReasonComment); err != nil {
			logger.For(ctx).WithError(err).WithField("object_id", target.ObjectID).Warn("refresh comment count failed")
		}
	}
	s.removeAvatar(ctx, user.Avatar)
	logger.For(ctx).WithField("user_id", user.ID).Info("user deleted")
	return nil
}

// UploadAvatar 上传并替换本人头像
func (s *UserService) UploadAvatar(ctx context.Context, actor Actor, data []byte) (*dto.UserInfo, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrPermissionDenied
	}

	user, err := s.userRepo.GetByID(actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	uploaded, err := s.uploads.SaveImage(ctx, userAvatarPrefix, "", data)
	if err != nil {
		return nil, err
	}

	old := user.Avatar
	if err := s.userRepo.UpdateFields(user.ID, map[string]interface{}{"avatar": uploaded.Key}); err != nil {
		s.removeAvatar(ctx, uploaded.Key)
		return nil, err
	}
	user.Avatar = uploaded.Key
	s.removeAvatar(ctx, old)

	return s.presenter.UserInfo(user), nil
}

// removeAvatar 拉取的头像由定时任务清理，这里只删除上传的头像
func (s *UserService) removeAvatar(ctx context.Context, key string) {
	if key == "" || strings.HasPrefix(key, avatar.FetchedPrefix) {
		return
	}
	if err := s.uploads.Delete(ctx, key); err != nil {
		logger.For(ctx).WithError(err).WithField("key", key).Warn("delete avatar failed")
	}
}

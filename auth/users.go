package auth

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"nongxian/apperr"
	"nongxian/models"
	"nongxian/permissions"
	"nongxian/store"
	"nongxian/utils"
)

const minPasswordLength = 6

var roles = []string{models.RoleAdmin, models.RoleModerator, models.RoleUser}

// UserInput creates a back-office account.
type UserInput struct {
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	DisplayName string   `json:"displayName"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// UserPatch changes only the fields that are set.
type UserPatch struct {
	DisplayName *string   `json:"displayName"`
	Role        *string   `json:"role"`
	Permissions *[]string `json:"permissions"`
	IsActive    *bool     `json:"isActive"`
	Password    *string   `json:"password"`
}

func checkGrants(role string, perms []string) error {
	if !slices.Contains(roles, role) {
		return apperr.ValidationError("角色無效")
	}
	for _, p := range perms {
		if !slices.Contains(permissions.All, p) {
			return apperr.ValidationError(fmt.Sprintf("未知的權限：%s", p))
		}
	}
	return nil
}

func hashPassword(pw string) (string, error) {
	if len(pw) < minPasswordLength {
		return "", apperr.ValidationError(fmt.Sprintf("密碼至少需要 %d 個字元", minPasswordLength))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", apperr.InternalError("密碼加密失敗", err)
	}
	return string(hash), nil
}

func (s *Service) ListUsers(ctx context.Context) ([]models.AdminUser, error) {
	return s.admins.GetAll(ctx, "createdAt", store.Desc, 0)
}

func (s *Service) CreateUser(ctx context.Context, in UserInput) (models.AdminUser, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !utils.IsValidEmail(email) {
		return models.AdminUser{}, apperr.ValidationError("Email 格式錯誤")
	}
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if err := checkGrants(in.Role, in.Permissions); err != nil {
		return models.AdminUser{}, err
	}
	if _, err := s.byEmail(ctx, email); err == nil {
		return models.AdminUser{}, apperr.ConflictError("此 Email 已被使用", nil)
	} else if !apperr.Is(err, apperr.NotFound) {
		return models.AdminUser{}, apperr.InternalError("無法建立使用者", err)
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return models.AdminUser{}, err
	}

	user := models.AdminUser{
		UID:          "user-" + utils.GetUUID(),
		Email:        email,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		Role:         in.Role,
		Permissions:  append([]string{}, in.Permissions...),
		IsActive:     true,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.admins.AddWithID(ctx, user.UID, user); err != nil {
		return models.AdminUser{}, apperr.InternalError("無法建立使用者", err)
	}
	return user, nil
}

func (s *Service) UpdateUser(ctx context.Context, uid string, p UserPatch) (models.AdminUser, error) {
	user, err := s.admins.GetByID(ctx, uid)
	if err != nil {
		return models.AdminUser{}, err
	}
	fields := map[string]any{}
	if p.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*p.DisplayName)
		fields["displayName"] = user.DisplayName
	}
	if p.Role != nil {
		user.Role = *p.Role
		fields["role"] = user.Role
	}
	if p.Permissions != nil {
		user.Permissions = append([]string{}, (*p.Permissions)...)
		fields["permissions"] = user.Permissions
	}
	if err := checkGrants(user.Role, user.Permissions); err != nil {
		return models.AdminUser{}, err
	}
	if p.IsActive != nil {
		user.IsActive = *p.IsActive
		fields["isActive"] = user.IsActive
	}
	if p.Password != nil {
		hash, err := hashPassword(*p.Password)
		if err != nil {
			return models.AdminUser{}, err
		}
		user.PasswordHash = hash
		fields["passwordHash"] = hash
	}
	if len(fields) == 0 {
		return user, nil
	}
	if err := s.admins.Update(ctx, uid, fields); err != nil {
		return models.AdminUser{}, err
	}
	return user, nil
}

// DeleteUser removes an account. Users cannot delete themselves.
func (s *Service) DeleteUser(ctx context.Context, uid, actor string) error {
	if uid == actor {
		return apperr.ValidationError("無法刪除自己的帳號")
	}
	return s.admins.Delete(ctx, uid)
}

package auth

import (
	"context"
	"strings"

	"voicepost-backend/internal/application/workspace"
	"voicepost-backend/internal/domain"
	"voicepost-backend/internal/pkg/identity"
	"voicepost-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// LoginInput for login request body.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterInput for signup request body.
type RegisterInput struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserFinder abstracts user lookup by email+password (for production GORM
// or test doubles).
type UserFinder interface {
	FindByEmailAndPassword(email, password string) (*domain.User, error)
}

// GormUserFinder implements UserFinder using GORM and bcrypt.
type GormUserFinder struct{ DB *gorm.DB }

func (g *GormUserFinder) FindByEmailAndPassword(email, password string) (*domain.User, error) {
	return LoginUser(g.DB, LoginInput{Email: email, Password: password})
}

// LoginUser finds user by email and verifies password.
func LoginUser(db *gorm.DB, input LoginInput) (*domain.User, error) {
	if input.Email == "" || input.Password == "" {
		return nil, ErrEmailPasswordRequired
	}
	var u domain.User
	if err := db.Where("email = ?", strings.ToLower(input.Email)).First(&u).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrInvalidEmail
		}
		return nil, err
	}
	if u.PasswordHash == "" {
		return nil, ErrInvalidEmail
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrIncorrectPassword
	}
	return &u, nil
}

// RegisterResult carries the new user and their bootstrap workspace.
type RegisterResult struct {
	User        *domain.User
	WorkspaceID uuid.UUID
}

// RegisterUser creates an account and resolves its default workspace
// through the bootstrap path. This is the only caller allowed to create a
// workspace implicitly.
func RegisterUser(ctx context.Context, db *gorm.DB, ws *workspace.Service, in RegisterInput) (*RegisterResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !validation.IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !validation.IsValidPassword(in.Password) {
		return nil, ErrWeakPassword
	}
	if !validation.IsValidFullname(in.Fullname) {
		return nil, ErrInvalidFullname
	}

	var existing domain.User
	if err := db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		Fullname:     strings.TrimSpace(in.Fullname),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, err
	}

	wid, err := ws.Resolve(ctx, workspace.ResolveInput{
		Principal:      &identity.Principal{ID: u.UserID, Email: u.Email, Fullname: u.Fullname},
		AllowBootstrap: true,
	})
	if err != nil {
		return nil, err
	}

	return &RegisterResult{User: u, WorkspaceID: wid}, nil
}

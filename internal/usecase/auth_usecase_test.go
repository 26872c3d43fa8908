package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
	"shop/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "unit-test-secret"

func TestRegister_InvalidEmail(t *testing.T) {
	uc := usecase.NewAuthUsecase(new(UserRepoMock), testSecret)

	_, err := uc.Register(context.Background(), usecase.RegisterInput{
		Email: "not-an-email", Password: "password123", FullName: "Taro",
	})
	assertErrContains(t, err, "invalid email")
}

func TestRegister_ShortPassword(t *testing.T) {
	uc := usecase.NewAuthUsecase(new(UserRepoMock), testSecret)

	_, err := uc.Register(context.Background(), usecase.RegisterInput{
		Email: "a@b.c", Password: "short", FullName: "Taro",
	})
	assertErrContains(t, err, "password must be at least 8 characters")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	users := new(UserRepoMock)
	uc := usecase.NewAuthUsecase(users, testSecret)

	users.On("FindByEmail", mock.Anything, "a@b.c").Return(model.User{ID: 1, Email: "a@b.c"}, nil)

	_, err := uc.Register(context.Background(), usecase.RegisterInput{
		Email: "a@b.c", Password: "password123", FullName: "Taro",
	})
	assertHTTPStatus(t, err, http.StatusConflict)
}

func TestRegister_Success(t *testing.T) {
	users := new(UserRepoMock)
	uc := usecase.NewAuthUsecase(users, testSecret)

	users.On("FindByEmail", mock.Anything, "a@b.c").Return(model.User{}, repo.ErrNotFound)
	users.On("Create", mock.Anything, mock.MatchedBy(func(u model.User) bool {
		//平文は保存しない
		return u.Email == "a@b.c" && u.Role == model.RoleUser && u.PasswordHash != "password123"
	})).Return(int64(7), nil)

	id, err := uc.Register(context.Background(), usecase.RegisterInput{
		Email: "A@B.C", Password: "password123", FullName: "Taro",
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(7), id)
}

func TestLogin_WrongPassword(t *testing.T) {
	users := new(UserRepoMock)
	uc := usecase.NewAuthUsecase(users, testSecret)

	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)
	users.On("FindByEmail", mock.Anything, "a@b.c").
		Return(model.User{ID: 7, Email: "a@b.c", PasswordHash: string(hash), IsActive: true}, nil)

	_, err := uc.Login(context.Background(), "a@b.c", "wrong-password")
	assertHTTPStatus(t, err, http.StatusUnauthorized)
}

func TestLogin_UnknownEmailSameError(t *testing.T) {
	users := new(UserRepoMock)
	uc := usecase.NewAuthUsecase(users, testSecret)

	users.On("FindByEmail", mock.Anything, "nobody@b.c").Return(model.User{}, repo.ErrNotFound)

	_, err := uc.Login(context.Background(), "nobody@b.c", "whatever123")
	//存在の有無で文言を変えない
	assertErrContains(t, err, "invalid email or password")
}

func TestLogin_InactiveUser(t *testing.T) {
	users := new(UserRepoMock)
	uc := usecase.NewAuthUsecase(users, testSecret)

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	users.On("FindByEmail", mock.Anything, "a@b.c").
		Return(model.User{ID: 7, Email: "a@b.c", PasswordHash: string(hash), IsActive: false}, nil)

	_, err := uc.Login(context.Background(), "a@b.c", "password123")
	assertHTTPStatus(t, err, http.StatusUnauthorized)
}

func TestLogin_Success_TokenCarriesSubAndRole(t *testing.T) {
	users := new(UserRepoMock)
	uc := usecase.NewAuthUsecase(users, testSecret)

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	users.On("FindByEmail", mock.Anything, "a@b.c").
		Return(model.User{ID: 7, Email: "a@b.c", PasswordHash: string(hash), Role: model.RoleAdmin, IsActive: true, FullName: "Taro"}, nil)
	users.On("UpdateLastLoginAt", mock.Anything, int64(7)).Return(nil)

	out, err := uc.Login(context.Background(), "a@b.c", "password123")
	assert.NoError(t, err)
	assert.Equal(t, int64(7), out.UserID)
	assert.Equal(t, "ADMIN", out.Role)

	token, err := jwt.Parse(out.Token, func(t *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	assert.NoError(t, err)
	claims, ok := token.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.Equal(t, float64(7), claims["sub"])
	assert.Equal(t, "ADMIN", claims["role"])
}

package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/YassinSultan/CoreSystem-Backend/internal/api/middleware"
	"github.com/YassinSultan/CoreSystem-Backend/internal/api/response"
	inputsanitize "github.com/YassinSultan/CoreSystem-Backend/internal/api/sanitize"
	"github.com/YassinSultan/CoreSystem-Backend/internal/model"
	"github.com/YassinSultan/CoreSystem-Backend/internal/service"
)

const accessTokenCookie = "access_token"

// accessTokenMaxAge matches the token TTL so the cookie and the JWT expire
// together.
const accessTokenMaxAge = 24 * 60 * 60

type AuthHandler struct {
	auth *service.AuthService
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type createUserRequest struct {
	Username    string   `json:"username" binding:"required"`
	Password    string   `json:"password" binding:"required"`
	Name        *string  `json:"name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func RegisterAuthRoutes(group *gin.RouterGroup, auth *service.AuthService, secret []byte) {
	handler := NewAuthHandler(auth)
	routes := group.Group("/auth")

	routes.POST("/login", handler.Login)
	routes.POST("/logout", handler.Logout)

	authed := routes.Group("")
	authed.Use(middleware.JWTAuth(secret))
	authed.GET("/me", handler.Me)
	authed.PATCH("/password", handler.ChangePassword)
	authed.POST("/users", middleware.RequireRole(string(model.UserRoleAdmin)), handler.CreateUser)
}

// Login verifies credentials, sets the access-token cookie and returns
// the token alongside the user profile.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "اسم المستخدم وكلمة المرور مطلوبان")
		return
	}

	token, user, err := h.auth.Login(c.Request.Context(), inputsanitize.Text(req.Username), req.Password)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	c.SetCookie(accessTokenCookie, token, accessTokenMaxAge, "/", "", false, true)
	response.Success(c, "تم تسجيل الدخول بنجاح", gin.H{
		"token": token,
		"user":  user,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie(accessTokenCookie, "", -1, "/", "", false, true)
	response.Success(c, "تم تسجيل الخروج بنجاح", nil)
}

func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "غير مصرح")
		return
	}
	response.Success(c, "تمت العملية بنجاح", gin.H{
		"id":          claims.UserID,
		"username":    claims.Username,
		"role":        claims.Role,
		"permissions": claims.Permissions,
	})
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, "غير مصرح")
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "كلمة المرور القديمة والجديدة مطلوبتان")
		return
	}

	if err := h.auth.ChangePassword(c.Request.Context(), claims.UserID, req.OldPassword, req.NewPassword); err != nil {
		handleAuthError(c, err)
		return
	}
	response.Success(c, "تم تغيير كلمة المرور بنجاح", nil)
}

// CreateUser is admin only; regular accounts are provisioned here rather than
// through open registration.
func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "اسم المستخدم وكلمة المرور مطلوبان")
		return
	}

	role := model.UserRole(inputsanitize.Text(req.Role))
	if role == "" {
		role = model.UserRoleUser
	}
	if role != model.UserRoleUser && role != model.UserRoleAdmin {
		response.Fail(c, http.StatusBadRequest, "الدور غير صالح")
		return
	}

	var name *string
	if req.Name != nil {
		cleaned := inputsanitize.Text(*req.Name)
		name = &cleaned
	}
	perms := make([]string, 0, len(req.Permissions))
	for _, p := range req.Permissions {
		perms = append(perms, inputsanitize.Text(p))
	}

	user, err := h.auth.CreateUser(c.Request.Context(), inputsanitize.Text(req.Username), req.Password, name, role, perms)
	if err != nil {
		handleAuthError(c, err)
		return
	}
	response.Created(c, "تم إنشاء المستخدم بنجاح", user)
}

func handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, "اسم المستخدم أو كلمة المرور غير صحيحة")
	case errors.Is(err, service.ErrUserNotFound):
		response.Fail(c, http.StatusNotFound, "المستخدم غير موجود")
	case errors.Is(err, service.ErrUsernameTaken):
		response.Fail(c, http.StatusConflict, "اسم المستخدم مستخدم من قبل")
	default:
		response.Error(c, err)
	}
}

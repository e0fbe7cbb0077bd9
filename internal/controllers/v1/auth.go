package v1

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/parish-ledger/backend/internal/httputil"
	"github.com/parish-ledger/backend/internal/models"
)

// RegisterAuthRoutes registers the routes for authentication with
// the RouterGroup that is passed.
func RegisterAuthRoutes(r *gin.RouterGroup) {
	r.OPTIONS("/register", httputil.OptionsPost)
	r.POST("/register", Register)

	r.OPTIONS("/login", httputil.OptionsPost)
	r.POST("/login", Login)

	r.OPTIONS("/profile", httputil.OptionsGetPatch)
	r.GET("/profile", RequireAuth(), GetProfile)
	r.PATCH("/profile", RequireAuth(), UpdateProfile)
}

type jwtClaims struct {
	jwt.RegisteredClaims
	Name string          `json:"name"`
	Role models.UserRole `json:"role"`
}

func jwtSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "parish-ledger-insecure-development-secret"
	}

	return []byte(secret)
}

func jwtLifetime() time.Duration {
	lifetime, err := time.ParseDuration(os.Getenv("JWT_LIFETIME"))
	if err != nil || lifetime <= 0 {
		return 24 * time.Hour
	}

	return lifetime
}

func createToken(user models.User) (string, error) {
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(jwtLifetime())),
		},
		Name: user.Name,
		Role: user.Role,
	})

	return token.SignedString(jwtSecret())
}

func parseToken(raw string) (jwtClaims, error) {
	var claims jwtClaims

	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errTokenInvalid
		}
		return jwtSecret(), nil
	})
	if err != nil || !token.Valid {
		return jwtClaims{}, errTokenInvalid
	}

	return claims, nil
}

// RequireAuth verifies the bearer token and stores the acting user's ID
// and role in the request context.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(status(errAuthRequired), httpError{Error: errAuthRequired.Error()})
			return
		}

		claims, err := parseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(status(err), httpError{Error: err.Error()})
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			c.AbortWithStatusJSON(status(errTokenInvalid), httpError{Error: errTokenInvalid.Error()})
			return
		}

		c.Set("userID", userID)
		c.Set("userRole", claims.Role)
		c.Next()
	}
}

// RequireAdmin rejects requests whose acting user is not an admin. It
// has to run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if role, ok := c.Get("userRole"); !ok || role != models.RoleAdmin {
			c.AbortWithStatusJSON(status(errAdminRequired), httpError{Error: errAdminRequired.Error()})
			return
		}

		c.Next()
	}
}

// currentUserID returns the acting user's ID from the request context.
func currentUserID(c *gin.Context) uuid.UUID {
	if id, ok := c.Get("userID"); ok {
		return id.(uuid.UUID)
	}

	return uuid.Nil
}

type UserEditable struct {
	Name     string          `json:"name" example:"Jane Smith"`
	Email    string          `json:"email" example:"jane@example.com"`
	Password string          `json:"password" example:"correct horse battery staple"`
	Role     models.UserRole `json:"role" example:"staff" default:"staff"`
}

// User is the representation of a user in API v1.
type User struct {
	models.DefaultModel
	Name  string          `json:"name" example:"Jane Smith"`
	Email string          `json:"email" example:"jane@example.com"`
	Role  models.UserRole `json:"role" example:"staff"`
}

func newUser(model models.User) User {
	return User{
		DefaultModel: model.DefaultModel,
		Name:         model.Name,
		Email:        model.Email,
		Role:         model.Role,
	}
}

type UserResponse struct {
	Data  *User   `json:"data"`                                       // The user data, if the request was successful
	Token *string `json:"token"`                                      // A signed token for the user, if one was issued
	Error *string `json:"error" example:"the credentials you specified are invalid"` // The error, if any occurred
}

// @Summary		Register user
// @Description	Registers a new user. The first user ever registered becomes an admin without further checks; every further registration requires an admin token.
// @Tags			Auth
// @Accept			json
// @Produce		json
// @Success		201		{object}	UserResponse
// @Failure		400		{object}	UserResponse
// @Failure		401		{object}	UserResponse
// @Param			user	body		UserEditable	true	"User"
// @Router			/v1/auth/register [post]
func Register(c *gin.Context) {
	var editable UserEditable
	err := httputil.BindData(c, &editable)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), UserResponse{Error: &e})
		return
	}

	if editable.Email == "" || editable.Password == "" {
		e := errEmailPasswordRequired.Error()
		c.JSON(status(errEmailPasswordRequired), UserResponse{Error: &e})
		return
	}

	var count int64
	err = models.DB.Model(&models.User{}).Count(&count).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), UserResponse{Error: &e})
		return
	}

	user := models.User{
		Name:  editable.Name,
		Email: editable.Email,
		Role:  editable.Role,
	}

	if count == 0 {
		// The first user bootstraps the instance
		user.Role = models.RoleAdmin
	} else {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			e := errAuthRequired.Error()
			c.JSON(status(errAuthRequired), UserResponse{Error: &e})
			return
		}

		claims, err := parseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil || claims.Role != models.RoleAdmin {
			e := errAdminRequired.Error()
			c.JSON(status(errAdminRequired), UserResponse{Error: &e})
			return
		}
	}

	err = user.SetPassword(editable.Password)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), UserResponse{Error: &e})
		return
	}

	err = models.DB.Create(&user).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), UserResponse{Error: &e})
		return
	}

	token, err := createToken(user)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), UserResponse{Error: &e})
		return
	}

	data := newUser(user)
	c.JSON(http.StatusCreated, UserResponse{Data: &data, Token: &token})
}

type loginData struct {
	Email    string `json:"email" example:"jane@example.com"`
	Password string `json:"password" example:"correct horse battery staple"`
}

// @Summary		Login
// @Description	Verifies the credentials and returns a signed token for the user
// @Tags			Auth
// @Accept			json
// @Produce		json
// @Success		200			{object}	UserResponse
// @Failure		400			{object}	UserResponse
// @Failure		401			{object}	UserResponse
// @Param			credentials	body		loginData	true	"Credentials"
// @Router			/v1/auth/login [post]
func Login(c *gin.Context) {
	var data loginData
	err := httputil.BindData(c, &data)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), UserResponse{Error: &e})
		return
	}

	if data.Email == "" || data.Password == "" {
		e := errEmailPasswordRequired.Error()
		c.JSON(status(errEmailPasswordRequired), UserResponse{Error: &e})
		return
	}

	var user models.User
	err = models.DB.First(&user, "email = ?", strings.ToLower(strings.TrimSpace(data.Email))).Error
	if err != nil || !user.CheckPassword(data.Password) {
		e := errCredentialsInvalid.Error()
		c.JSON(status(errCredentialsInvalid), UserResponse{Error: &e})
		return
	}

	token, err := createToken(user)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), UserResponse{Error: &e})
		return
	}

	apiUser := newUser(user)
	c.JSON(http.StatusOK, UserResponse{Data: &apiUser, Token: &token})
}

// @Summary		Get profile
// @Description	Returns the profile of the acting user
// @Tags			Auth
// @Produce		json
// @Success		200	{object}	UserResponse
// @Failure		401	{object}	UserResponse
// @Router			/v1/auth/profile [get]
func GetProfile(c *gin.Context) {
	var user models.User
	err := models.DB.First(&user, "id = ?", currentUserID(c)).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), UserResponse{Error: &e})
		return
	}

	data := newUser(user)
	c.JSON(http.StatusOK, UserResponse{Data: &data})
}

type profilePatch struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// @Summary		Update profile
// @Description	Updates name, email or password of the acting user
// @Tags			Auth
// @Accept			json
// @Produce		json
// @Success		200		{object}	UserResponse
// @Failure		400		{object}	UserResponse
// @Failure		401		{object}	UserResponse
// @Param			profile	body		profilePatch	true	"Profile"
// @Router			/v1/auth/profile [patch]
func UpdateProfile(c *gin.Context) {
	var patch profilePatch
	err := httputil.BindData(c, &patch)
	if err != nil {
		e := err.Error()
		c.JSON(status(err), UserResponse{Error: &e})
		return
	}

	var user models.User
	err = models.DB.First(&user, "id = ?", currentUserID(c)).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), UserResponse{Error: &e})
		return
	}

	if patch.Name != nil {
		user.Name = *patch.Name
	}

	if patch.Email != nil {
		user.Email = *patch.Email
	}

	if patch.Password != nil {
		err = user.SetPassword(*patch.Password)
		if err != nil {
			e := err.Error()
			c.JSON(status(err), UserResponse{Error: &e})
			return
		}
	}

	err = models.DB.Save(&user).Error
	if err != nil {
		e := err.Error()
		c.JSON(status(err), UserResponse{Error: &e})
		return
	}

	data := newUser(user)
	c.JSON(http.StatusOK, UserResponse{Data: &data})
}

package middlewares

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/dentametrics/practice_backend/config"
	"bitbucket.org/dentametrics/practice_backend/models"
	"bitbucket.org/dentametrics/practice_backend/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type authString string

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")

		if auth == "" {
			c.Next()
			return
		}

		bearer := "Bearer "
		auth = auth[len(bearer):]

		validate, err := utils.JwtValidate(auth)
		if err != nil || !validate.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		customClaim, _ := validate.Claims.(*utils.JwtCustomClaim)

		ctx := context.WithValue(c.Request.Context(), authString("auth"), customClaim)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func CtxValue(ctx context.Context) *utils.JwtCustomClaim {
	raw, _ := ctx.Value(authString("auth")).(*utils.JwtCustomClaim)
	return raw
}

// retrieve user from redis or db
func getUser(username string, ctx context.Context) (*models.User, error) {
	var user models.User
	exists, err := config.GetRedisObject("User:"+username, &user)
	if err != nil {
		return nil, err
	}

	if !exists {

		db := config.GetDB()
		if err := db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Take(&user).Error; err != nil {
			return nil, err
		}

		token_lifespan, err := strconv.Atoi(os.Getenv("TOKEN_HOUR_LIFESPAN"))
		if err != nil {
			return nil, err
		}

		if err := config.SetRedisObject("User:"+user.Username, &user, time.Duration(token_lifespan)*time.Hour); err != nil {
			return nil, err
		}
	}
	return &user, nil
}

// retrieve role's allowed module actions from redis and check if the permission is allowed
func authorizeUser(ctx context.Context, roleId int, permission string) error {
	var allowedActions map[string]bool
	exists, err := config.GetRedisObject("AllowedActions:Role:"+fmt.Sprint(roleId), &allowedActions)
	if err != nil {
		return err
	}

	if !exists {

		allowedActions, err = models.GetPermissionsFromRole(ctx, roleId)
		if err != nil {
			return err
		}

		// store in redis
		if err := config.SetRedisObject("AllowedActions:Role:"+fmt.Sprint(roleId), &allowedActions, 0); err != nil {
			return err
		}
	}

	// check if current permission is allowed for current user
	// using a map for faster look up, non-existent key will return false, default zero for boolean
	if allowed := allowedActions[permission]; !allowed {
		return errors.New("Unauthorized")
	}
	return nil
}

// Authenticate resolves the session user and seeds the tenant scope for
// everything downstream. Routes behind it always have a clinic id, a user
// id and a user name in the request context.
func Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		username, ok := utils.GetUsernameFromContext(ctx)
		if !ok || username == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Access Denied"})
			c.Abort()
			return
		}

		user, err := getUser(username, ctx)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				// destroy current session if user has been deleted
				models.Logout(ctx)
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}
		if !*user.IsActive {
			c.JSON(http.StatusForbidden, gin.H{"error": "User is disabled"})
			c.Abort()
			return
		}

		ctx = context.WithValue(ctx, utils.ContextKeyClinicId, user.ClinicId)
		ctx = context.WithValue(ctx, utils.ContextKeyUserId, user.ID)
		ctx = context.WithValue(ctx, utils.ContextKeyUserName, user.Name)
		ctx = utils.SetRoleIdInContext(ctx, user.RoleId)
		ctx = utils.SetIsAdminInContext(ctx, user.Role == models.UserRoleAdmin)

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// HTTP verb to permission action, matching the action names modules declare.
var methodActions = map[string]string{
	http.MethodGet:    "read",
	http.MethodPost:   "create",
	http.MethodPut:    "update",
	http.MethodDelete: "delete",
}

// RequireModuleAction guards a clinic route with the role permission for the
// given module. Admin users never pass, they only use the admin routes.
func RequireModuleAction(module string) gin.HandlerFunc {
	permissionPrefix := strings.ToLower(module) + "|"
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if isAdmin, _ := utils.GetIsAdminFromContext(ctx); isAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		action, ok := methodActions[c.Request.Method]
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		roleId, ok := utils.GetRoleIdFromContext(ctx)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		if err := authorizeUser(ctx, roleId, permissionPrefix+action); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin guards the platform admin routes.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isAdmin, _ := utils.GetIsAdminFromContext(c.Request.Context()); !isAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

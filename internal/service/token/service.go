package token

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/vmarkelov/marketplace/internal/repo"
)

type TokenService struct {
	Repo          *repo.GormRepo
	JWTSecret     []byte
	RefreshSecret []byte
}

func CreateCookie(name, value, path string, expTime time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expTime,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (t *TokenService) RotateToken(c echo.Context, rawToken string) (string, string, error) {
	ctx := c.Request().Context()

	claims, err := ValidateRefresh(ctx, rawToken, t.RefreshSecret, t.Repo)
	if err != nil {
		return "", "", err
	}

	userID := uint(claims["sub"].(float64))

	user, err := t.Repo.GetUserByID(ctx, userID)
	if err != nil {
		return "", "", err
	}

	newAccess, err := SignAccessToken(user, t.JWTSecret)
	if err != nil {
		return "", "", err
	}

	newRefresh, err := SignRefreshToken(user, t.RefreshSecret)
	if err != nil {
		return "", "", err
	}

	if err := t.Repo.RevokeRefreshToken(ctx, rawToken); err != nil {
		return "", "", err
	}
	if err := StoreRefreshToken(ctx, t.Repo, newRefresh, userID); err != nil {
		return "", "", err
	}

	return newAccess, newRefresh, nil
}

// AutoRefreshMiddleware authenticates the request from the access-token
// cookie, transparently rotating the pair when the access token has expired.
func (t *TokenService) AutoRefreshMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		asCookie, err := c.Cookie("accessToken")
		if err == nil {
			tok, err := jwt.Parse(asCookie.Value, func(j *jwt.Token) (interface{}, error) {
				return t.JWTSecret, nil
			})
			if err == nil && tok.Valid {
				setUserContext(c, tok.Claims.(jwt.MapClaims))
				return next(c)
			}
			if !errors.Is(err, jwt.ErrTokenExpired) {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
			}
		}

		rfCookie, err := c.Cookie("refreshToken")
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
		}
		newAccess, newRefresh, err := t.RotateToken(c, rfCookie.Value)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "cannot rotate token: "+err.Error())
		}

		c.SetCookie(CreateCookie("accessToken", newAccess, "/", time.Now().Add(AccessTTL)))
		c.SetCookie(CreateCookie("refreshToken", newRefresh, "/", time.Now().Add(RefreshTTL)))

		tok, _ := jwt.Parse(newAccess, func(j *jwt.Token) (interface{}, error) { return t.JWTSecret, nil })
		setUserContext(c, tok.Claims.(jwt.MapClaims))
		return next(c)
	}
}

func setUserContext(c echo.Context, claims jwt.MapClaims) {
	c.Set("userID", uint(claims["sub"].(float64)))
	c.Set("email", claims["email"].(string))
	c.Set("role", claims["role"].(string))
}

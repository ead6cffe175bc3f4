// Package auth guards the tools API behind one configured operator account.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type contextKey string

const loginKey contextKey = "login"

const (
	CookieName = "session_token"
	TokenTTL   = 30 * 24 * time.Hour
)

type Authenv struct {
	JWTkey        []byte
	OperatorLogin string
	OperatorHash  string
	Log           *zap.Logger
	// Insecure drops the Secure cookie flag for plain HTTP deployments.
	Insecure bool
}

type Loginrequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// Login returns the login stored in ctx by AuthMiddleware.
func Login(ctx context.Context) string {
	login, _ := ctx.Value(loginKey).(string)
	return login
}

func (env *Authenv) logger() *zap.Logger {
	if env.Log == nil {
		return zap.NewNop()
	}
	return env.Log
}

func (env *Authenv) AuthHandler(w http.ResponseWriter, r *http.Request) {
	var req Loginrequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	req.Login = strings.TrimSpace(req.Login)
	if req.Login == "" || req.Password == "" {
		http.Error(w, "Login and password required", http.StatusBadRequest)
		return
	}

	// the hash is compared even for a wrong login so both cases take as long
	err := bcrypt.CompareHashAndPassword([]byte(env.OperatorHash), []byte(req.Password))
	if err != nil || req.Login != env.OperatorLogin {
		env.logger().Info("login rejected", zap.String("login", req.Login), zap.String("remote", r.RemoteAddr))
		http.Error(w, "Invalid login or password", http.StatusUnauthorized)
		return
	}

	token, expires, err := env.NewToken(req.Login)
	if err != nil {
		env.logger().Error("sign token", zap.Error(err))
		http.Error(w, "Token error", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Expires:  expires,
		Path:     "/",
		HttpOnly: true,
		Secure:   !env.Insecure,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LoginResponse{Token: token, ExpiresAt: expires})
}

// NewToken signs a session token for login.
func (env *Authenv) NewToken(login string) (string, time.Time, error) {
	expires := time.Now().Add(TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"login": login,
		"exp":   expires.Unix(),
	})
	s, err := token.SignedString(env.JWTkey)
	return s, expires, err
}

var errNoToken = errors.New("no session token")

func (env *Authenv) parse(r *http.Request) (string, error) {
	raw := ""
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		raw = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	} else if c, err := r.Cookie(CookieName); err == nil {
		raw = c.Value
	}
	if raw == "" {
		return "", errNoToken
	}

	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return env.JWTkey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", jwt.ErrTokenInvalidClaims
	}
	login, _ := claims["login"].(string)
	if login == "" || login != env.OperatorLogin {
		return "", jwt.ErrTokenInvalidClaims
	}
	return login, nil
}

// AuthMiddleware accepts a session cookie or a bearer token and answers
// 401 otherwise.
func (env *Authenv) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		login, err := env.parse(r)
		if err != nil {
			if !errors.Is(err, errNoToken) {
				env.logger().Debug("token rejected", zap.Error(err))
			}
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), loginKey, login)))
	})
}

package apitest

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"teamboard/internal/model"
)

const ctxUserID = "user_id"

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// AddUser seeds a user in the default team. The first user of a fresh
// backend is not promoted automatically; role is taken as given.
func (b *Backend) AddUser(name, email, password string, role model.Role) model.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	team := b.defaultTeamLocked()
	return b.addUserLocked(name, email, password, role, &team.ID)
}

// AddUserWithoutTeam seeds a user that belongs to no team.
func (b *Backend) AddUserWithoutTeam(name, email, password string, role model.Role) model.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(name, email, password, role, nil)
}

func (b *Backend) addUserLocked(name, email, password string, role model.Role, teamID *int64) model.User {
	now := b.stamp()
	u := &userRec{
		User: model.User{
			ID:        b.id(),
			Name:      name,
			Email:     strings.ToLower(email),
			Role:      role,
			TeamID:    teamID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		password: password,
	}
	b.users[u.ID] = u
	return b.userViewLocked(u)
}

func (b *Backend) defaultTeamLocked() *model.Team {
	if ids := sortedIDs(b.teams, false); len(ids) > 0 {
		return b.teams[ids[0]]
	}
	now := b.stamp()
	t := &model.Team{ID: b.id(), Name: "Default Team", CreatedAt: now, UpdatedAt: now}
	b.teams[t.ID] = t
	return t
}

func (b *Backend) userViewLocked(u *userRec) model.User {
	out := u.User
	if u.TeamID != nil {
		if t, ok := b.teams[*u.TeamID]; ok {
			tc := *t
			out.Team = &tc
		}
	}
	return out
}

// TokenFor mints a valid access token for userID.
func (b *Backend) TokenFor(userID int64) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	tok, _ := b.mintLocked(userID, b.ttl)
	return tok
}

// ExpiredTokenFor mints a token for userID that expired an hour ago.
func (b *Backend) ExpiredTokenFor(userID int64) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	tok, _ := b.mintLocked(userID, -time.Hour)
	return tok
}

func (b *Backend) mintLocked(userID int64, ttl time.Duration) (string, error) {
	jti, err := gonanoid.New()
	if err != nil {
		return "", err
	}
	now := b.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
}

func (b *Backend) parseToken(raw string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return b.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(b.now))
	return claims, err
}

// requireAuth mirrors the backend's JWT error responses: a missing header or
// an expired or revoked token is 401, a malformed token is 422.
func (b *Backend) requireAuth(c *gin.Context) {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if !strings.HasPrefix(h, "Bearer ") {
		fail(c, http.StatusUnauthorized, `Missing token: Missing Authorization Header`, nil)
		return
	}
	claims, err := b.parseToken(strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")))
	if errors.Is(err, jwt.ErrTokenExpired) {
		fail(c, http.StatusUnauthorized, "Token has expired", nil)
		return
	}
	if err != nil {
		fail(c, http.StatusUnprocessableEntity, fmt.Sprintf("Invalid token: %v", err), nil)
		return
	}

	b.mu.Lock()
	revoked := b.revoked[claims.ID]
	b.mu.Unlock()
	if revoked {
		fail(c, http.StatusUnauthorized, "Token has been revoked", nil)
		return
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		fail(c, http.StatusUnprocessableEntity, "Invalid token: bad subject", nil)
		return
	}
	c.Set(ctxUserID, id)
	c.Set("jti", claims.ID)
	c.Next()
}

func (b *Backend) requireAdmin(c *gin.Context) {
	b.mu.Lock()
	u, ok := b.users[c.GetInt64(ctxUserID)]
	admin := ok && u.Role == model.RoleAdmin
	b.mu.Unlock()
	if !admin {
		fail(c, http.StatusForbidden, "Admin access required", nil)
		return
	}
	c.Next()
}

// currentLocked returns the authenticated user or writes a 404.
func (b *Backend) currentLocked(c *gin.Context) (*userRec, bool) {
	u, ok := b.users[c.GetInt64(ctxUserID)]
	if !ok {
		fail(c, http.StatusNotFound, "User not found", nil)
		return nil, false
	}
	return u, true
}

func (b *Backend) handleRegister(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	name := rawString(body["name"])
	email := rawString(body["email"])
	password := rawString(body["password"])

	errs := map[string]string{}
	switch {
	case name == "":
		errs["name"] = "Name is required"
	case len(name) < 2:
		errs["name"] = "Name must be at least 2 characters"
	case len(name) > 100:
		errs["name"] = "Name must be less than 100 characters"
	}
	switch {
	case email == "":
		errs["email"] = "Email is required"
	case !emailPattern.MatchString(email):
		errs["email"] = "Invalid email format"
	case len(email) > 255:
		errs["email"] = "Email must be less than 255 characters"
	}
	switch {
	case password == "":
		errs["password"] = "Password is required"
	case len(password) < 8:
		errs["password"] = "Password must be at least 8 characters"
	case len(password) > 128:
		errs["password"] = "Password must be less than 128 characters"
	}
	if len(errs) > 0 {
		fail(c, http.StatusBadRequest, "Validation failed", errs)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.Email == strings.ToLower(email) {
			fail(c, http.StatusConflict, "Email already registered", nil)
			return
		}
	}
	role := model.RoleMember
	if len(b.users) == 0 {
		role = model.RoleAdmin
	}
	team := b.defaultTeamLocked()
	u := b.addUserLocked(name, email, password, role, &team.ID)
	tok, err := b.mintLocked(u.ID, b.ttl)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	succeed(c, http.StatusCreated, model.AuthResponse{User: u, AccessToken: tok}, "User registered successfully")
}

func (b *Backend) handleLogin(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	email := strings.ToLower(rawString(body["email"]))
	password := rawString(body["password"])
	if email == "" || password == "" {
		fail(c, http.StatusBadRequest, "Email and password are required", nil)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if u.Email != email {
			continue
		}
		if u.password != password {
			break
		}
		tok, err := b.mintLocked(u.ID, b.ttl)
		if err != nil {
			fail(c, http.StatusInternalServerError, err.Error(), nil)
			return
		}
		succeed(c, http.StatusOK, model.AuthResponse{User: b.userViewLocked(u), AccessToken: tok}, "Login successful")
		return
	}
	fail(c, http.StatusUnauthorized, "Invalid email or password", nil)
}

func (b *Backend) handleLogout(c *gin.Context) {
	b.mu.Lock()
	b.revoked[c.GetString("jti")] = true
	b.mu.Unlock()
	succeed(c, http.StatusOK, nil, "Logout successful")
}

func (b *Backend) handleMe(c *gin.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, found := b.currentLocked(c)
	if !found {
		return
	}
	succeed(c, http.StatusOK, b.userViewLocked(u), "")
}

func (b *Backend) handleTeamUsers(c *gin.Context) {
	teamID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusNotFound, "Team not found", nil)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, found := b.currentLocked(c)
	if !found {
		return
	}
	if u.TeamID == nil || *u.TeamID != teamID {
		fail(c, http.StatusForbidden, "Access denied", nil)
		return
	}
	if _, ok := b.teams[teamID]; !ok {
		fail(c, http.StatusNotFound, "Team not found", nil)
		return
	}
	members := []model.TeamMember{}
	for _, id := range sortedIDs(b.users, false) {
		m := b.users[id]
		if m.TeamID != nil && *m.TeamID == teamID {
			members = append(members, model.TeamMember{ID: m.ID, Name: m.Name, Email: m.Email, Role: m.Role})
		}
	}
	succeed(c, http.StatusOK, members, "")
}

package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/eduportal/internal/common"
	"github.com/dmitrijs2005/eduportal/internal/server/models"
	"github.com/dmitrijs2005/eduportal/internal/server/services"
	"github.com/gin-gonic/gin"
)

type SessionService interface {
	Issue(p *models.Principal) (*services.Session, error)
	Resolve(ctx context.Context, cookies services.SessionCookies) (*models.Principal, error)
	Login(ctx context.Context, email, password string) (*models.Principal, error)
	ChangePassword(ctx context.Context, p *models.Principal, current, next string) error
}

type ResetService interface {
	RequestReset(ctx context.Context, email string) (*services.ResetTicket, error)
	ResetPassword(ctx context.Context, email, token, newPassword string) error
	ForceReset(ctx context.Context, email, newPassword string) error
}

type userView struct {
	ID                 string `json:"id"`
	Email              string `json:"email"`
	Name               string `json:"name"`
	Role               string `json:"role"`
	Kind               string `json:"kind"`
	MustChangePassword bool   `json:"mustChangePassword"`
}

func newUserView(p *models.Principal) userView {
	return userView{
		ID:                 p.ID,
		Email:              p.Email,
		Name:               p.Name,
		Role:               p.Role,
		Kind:               string(p.Kind),
		MustChangePassword: p.MustChangePassword,
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type resetRequestRequest struct {
	Email string `json:"email" binding:"required"`
}

type resetRequest struct {
	Token    string `json:"token"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Force    bool   `json:"force"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

func (s *HTTPServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *HTTPServer) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, common.ErrorValidation)
		return
	}

	p, err := s.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		s.writeError(c, err)
		return
	}

	session, err := s.sessions.Issue(p)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.cookies.set(c, session)

	c.JSON(http.StatusOK, gin.H{"success": true, "user": newUserView(p)})
}

func (s *HTTPServer) logout(c *gin.Context) {
	s.cookies.clear(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *HTTPServer) session(c *gin.Context) {
	p, err := s.sessions.Resolve(c.Request.Context(), readSessionCookies(c))
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"authenticated": false})
			return
		}
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": newUserView(p)})
}

func (s *HTTPServer) resetRequest(c *gin.Context) {
	var req resetRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, common.ErrorValidation)
		return
	}

	ticket, err := s.resets.RequestReset(c.Request.Context(), req.Email)
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp := gin.H{"success": true}
	if s.exposeToken && ticket.Issued {
		resp["token"] = ticket.Token
	}
	c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) reset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, common.ErrorValidation)
		return
	}

	ctx := c.Request.Context()
	var err error
	if req.Force {
		err = s.forceReset(c, req)
	} else {
		err = s.resets.ResetPassword(ctx, req.Email, req.Token, req.Password)
	}
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// forceReset requires an admin session; a user session is forbidden.
func (s *HTTPServer) forceReset(c *gin.Context, req resetRequest) error {
	ctx := c.Request.Context()

	p, err := s.sessions.Resolve(ctx, readSessionCookies(c))
	if err != nil {
		return err
	}
	if p.Kind != models.KindAdmin {
		return common.ErrorForbidden
	}

	s.logger.Info(ctx, "forced reset requested", "request_id", c.GetString(requestIDKey),
		"admin", common.MaskEmail(p.Email), "target", common.MaskEmail(req.Email))
	return s.resets.ForceReset(ctx, req.Email, req.Password)
}

func (s *HTTPServer) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, common.ErrorValidation)
		return
	}

	p := c.MustGet(principalKey).(*models.Principal)
	if err := s.sessions.ChangePassword(c.Request.Context(), p, req.CurrentPassword, req.NewPassword); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// requireSession resolves the session and stores the principal on the
// context, answering 401 when there is none.
func (s *HTTPServer) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := s.sessions.Resolve(c.Request.Context(), readSessionCookies(c))
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

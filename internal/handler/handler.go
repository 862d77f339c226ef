package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"timeclock/internal/attendance"
	"timeclock/internal/auth"
	"timeclock/internal/httpmiddleware"
	"timeclock/internal/presence"
	"timeclock/internal/store"
	"timeclock/internal/user"
)

// Users is the part of user.Service the handlers need.
type Users interface {
	Register(ctx context.Context, name string, age int, email, password string) (user.User, error)
	Authenticate(ctx context.Context, email, password string) (user.User, error)
}

// Attendance is the part of attendance.Service the handlers need.
type Attendance interface {
	CheckInOrOut(ctx context.Context, userID string) (attendance.Event, error)
	History(ctx context.Context, userID string, limit, offset int) ([]attendance.Event, error)
}

// Schema applies schema steps.
type Schema interface {
	Apply(ctx context.Context, steps []store.Step) error
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) bool

type Handler struct {
	users      Users
	attendance Attendance
	tokens     *auth.Issuer
	schema     Schema
	roster     presence.Roster
	checks     map[string]HealthCheck
	log        logrus.FieldLogger
}

func New(users Users, att Attendance, tokens *auth.Issuer, schema Schema, roster presence.Roster, log logrus.FieldLogger) *Handler {
	return &Handler{
		users:      users,
		attendance: att,
		tokens:     tokens,
		schema:     schema,
		roster:     roster,
		checks:     make(map[string]HealthCheck),
		log:        log,
	}
}

// AddHealthCheck registers a dependency reported by /healthz.
func (h *Handler) AddHealthCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

// Register mounts every route on r.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/users", h.CreateUsersSchema)
	r.POST("/signup", h.Signup)
	r.POST("/login", h.Login)

	authed := r.Group("", auth.Bearer(h.tokens))
	authed.POST("/status", h.CreateAttendanceSchema)
	authed.POST("/checkin", h.CheckIn)
	authed.GET("/attendance", h.History)
	authed.GET("/presence", h.Presence)
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range h.checks {
		healthy := check(ctx)
		body[name] = healthy
		if !healthy {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// ---------- Schema ----------

func (h *Handler) CreateUsersSchema(c *gin.Context) {
	if err := h.schema.Apply(c.Request.Context(), store.UsersSchema); err != nil {
		h.internalError(c, err, "create users schema")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Users table created successfully"})
}

func (h *Handler) CreateAttendanceSchema(c *gin.Context) {
	if err := h.schema.Apply(c.Request.Context(), store.AttendanceSchema); err != nil {
		h.internalError(c, err, "create attendance schema")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Attendance table created successfully"})
}

// ---------- Attendance ----------

type checkInResponse struct {
	Message string            `json:"message"`
	Status  attendance.Status `json:"status"`
	EventID string            `json:"event_id"`
	Time    time.Time         `json:"time"`
}

// CheckIn toggles the caller between checked in and checked out.
func (h *Handler) CheckIn(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	evt, err := h.attendance.CheckInOrOut(c.Request.Context(), claims.UserID)
	if err != nil {
		h.attendanceError(c, err)
		return
	}

	msg := "Check-in Successful"
	if evt.Status == attendance.CheckedOut {
		msg = "Check-out Successful"
	}
	c.JSON(http.StatusCreated, checkInResponse{Message: msg, Status: evt.Status, EventID: evt.ID, Time: evt.When})
}

// History lists the caller's own events, newest first.
func (h *Handler) History(c *gin.Context) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	limit, offset := 50, 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	events, err := h.attendance.History(c.Request.Context(), claims.UserID, limit, offset)
	if err != nil {
		h.internalError(c, err, "list attendance")
		return
	}
	if events == nil {
		events = []attendance.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// Presence lists the users currently checked in.
func (h *Handler) Presence(c *gin.Context) {
	ids, err := h.roster.Members(c.Request.Context())
	if err != nil {
		h.internalError(c, err, "read presence roster")
		return
	}
	c.JSON(http.StatusOK, gin.H{"present": ids, "count": len(ids)})
}

func (h *Handler) internalError(c *gin.Context, err error, op string) {
	h.log.WithError(err).WithFields(logrus.Fields{
		"op":         op,
		"request_id": httpmiddleware.GetRequestID(c),
	}).Error("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

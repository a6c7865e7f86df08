// Package view serves the opened board to presentation front-ends over HTTP:
// a JSON snapshot, an SSE stream of snapshots and endpoints for user intents.
package view

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"taskboard/board"
	"taskboard/boardview"
	"taskboard/domain"
)

// Board is the board view the server drives.
type Board interface {
	State() (boardview.State, error)
	Subscribe(boardview.Listener) (func(), error)
	CreateTask(ctx context.Context, d *board.Draft) (domain.Task, error)
	UpdateTask(ctx context.Context, t domain.Task) (domain.Task, error)
	Save(ctx context.Context, taskID string) (domain.Task, error)
	Task(taskID string) (domain.Task, bool, error)
	DeleteTask(ctx context.Context, taskID string) error
	Move(ctx context.Context, source board.Position, dest *board.Position) (board.Move, bool, error)
	AddComment(ctx context.Context, taskID, text string) (domain.Task, error)
	DeleteComment(ctx context.Context, taskID, commentID, userID string) error
	SetEditing(taskID string, editing bool) error
	Edit(taskID string, edit board.TaskEdit) error
	Invite(ctx context.Context, email string) ([]domain.Member, error)
	Reload(ctx context.Context) error
}

// Options configure a Server.
type Options struct {
	// Token, when set, is required as a bearer token on every route but
	// /healthz. SSE clients may pass it as the token query parameter.
	Token string
	// UserID is the signed in user, used for comment delete checks.
	UserID string
	// Notifications, when set, is drained by GET /notifications.
	Notifications *boardview.Queue
	Logger        *log.Logger
}

// Server is the local view server.
type Server struct {
	e      *echo.Echo
	board  Board
	opts   Options
	broker *updateBroker
	logger *log.Logger
	stop   func()
}

// New builds a Server for b and starts forwarding its changes to SSE
// clients.
func New(b Board, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	s := &Server{
		e:      echo.New(),
		board:  b,
		opts:   opts,
		broker: newUpdateBroker(),
		logger: logger,
	}
	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.JSONSerializer = sonicSerializer{}
	s.e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
	}))
	s.e.Use(GzipRequestMiddleware())
	s.register()

	stop, err := b.Subscribe(func(boardview.State) { s.broker.notify() })
	if err != nil {
		return nil, err
	}
	s.stop = stop
	return s, nil
}

func (s *Server) register() {
	s.e.GET("/healthz", s.healthz)

	auth := s.requireToken
	s.e.GET("/board", s.getBoard, auth)
	s.e.GET("/stream", s.stream, auth)
	s.e.GET("/notifications", s.notifications, auth)
	s.e.POST("/reload", s.reload, auth)
	s.e.POST("/tasks", s.createTask, auth)
	s.e.PATCH("/tasks/:id", s.updateTask, auth)
	s.e.DELETE("/tasks/:id", s.deleteTask, auth)
	s.e.POST("/tasks/:id/editing", s.setEditing, auth)
	s.e.POST("/tasks/:id/save", s.saveTask, auth)
	s.e.POST("/tasks/:id/comments", s.addComment, auth)
	s.e.DELETE("/tasks/:id/comments/:commentId", s.deleteComment, auth)
	s.e.POST("/moves", s.move, auth)
	s.e.POST("/invite", s.invite, auth)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.e }

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.WithField("addr", addr).Info("view server listening")
	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server and detaches from the board.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stop != nil {
		s.stop()
	}
	return s.e.Shutdown(ctx)
}

func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.opts.Token == "" {
			return next(c)
		}
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			if token := c.QueryParam("token"); token != "" {
				authHeader = "Bearer " + token
			}
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] != s.opts.Token {
			return c.String(http.StatusUnauthorized, "bad auth header")
		}
		return next(c)
	}
}

// statusFor maps the failure taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch boardview.KindOf(err) {
	case boardview.KindValidation:
		return http.StatusBadRequest
	case boardview.KindNotFound:
		return http.StatusNotFound
	case boardview.KindUnauthorized:
		return http.StatusUnauthorized
	case boardview.KindTransport:
		return http.StatusBadGateway
	}
	if errors.Is(err, boardview.ErrClosed) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

type errorResponse struct {
	Error string         `json:"error"`
	Kind  boardview.Kind `json:"kind"`
}

func failure(c echo.Context, err error) error {
	return c.JSON(statusFor(err), errorResponse{Error: err.Error(), Kind: boardview.KindOf(err)})
}

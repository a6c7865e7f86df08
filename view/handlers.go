package view

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"taskboard/board"
	"taskboard/boardview"
	"taskboard/domain"
	"taskboard/internal/consts"
)

func (s *Server) healthz(c echo.Context) error {
	if _, err := s.board.State(); err != nil {
		return c.String(http.StatusServiceUnavailable, err.Error())
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) getBoard(c echo.Context) error {
	st, err := s.board.State()
	if err != nil {
		return failure(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// stream writes the full state as an SSE data frame now and after every
// change until the client goes away.
func (s *Server) stream(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return c.String(http.StatusInternalServerError, "stream unsupported")
	}
	ctx := c.Request().Context()
	ch := s.broker.subscribe()
	defer s.broker.unsubscribe(ch)
	for {
		st, err := s.board.State()
		if err != nil {
			s.logger.WithError(err).Warn("stream state")
			return nil
		}
		data, err := sonic.Marshal(st)
		if err != nil {
			s.logger.WithError(err).Error("encode stream state")
			return err
		}
		if _, err := c.Response().Write([]byte(consts.SSEDataPrefix)); err != nil {
			return err
		}
		if _, err := c.Response().Write(data); err != nil {
			return err
		}
		if _, err := c.Response().Write([]byte("\n\n")); err != nil {
			return err
		}
		flusher.Flush()
		select {
		case <-ctx.Done():
			return nil
		case <-ch:
		}
	}
}

func (s *Server) notifications(c echo.Context) error {
	if s.opts.Notifications == nil {
		return c.JSON(http.StatusOK, []boardview.Notification{})
	}
	notes := s.opts.Notifications.Drain()
	if notes == nil {
		notes = []boardview.Notification{}
	}
	return c.JSON(http.StatusOK, notes)
}

func (s *Server) reload(c echo.Context) error {
	if err := s.board.Reload(c.Request().Context()); err != nil {
		return failure(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) createTask(c echo.Context) error {
	d := board.NewDraft()
	if err := decodeBody(c, &d); err != nil {
		return failure(c, err)
	}
	t, err := s.board.CreateTask(c.Request().Context(), &d)
	if err != nil {
		return failure(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// taskPatch overlays the given fields onto the local copy before the full
// update is sent.
type taskPatch struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *domain.Status `json:"status,omitempty"`
	AssignedTo  *string        `json:"assignedTo,omitempty"`
	DueDate     *time.Time     `json:"dueDate,omitempty"`
}

func (s *Server) updateTask(c echo.Context) error {
	var p taskPatch
	if err := decodeBody(c, &p); err != nil {
		return failure(c, err)
	}
	id := c.Param("id")
	t, ok, err := s.board.Task(id)
	if err != nil {
		return failure(c, err)
	}
	if !ok {
		return failure(c, fmt.Errorf("%w: task %s", domain.ErrNotFound, id))
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.AssignedTo != nil {
		t.AssignedTo = *p.AssignedTo
	}
	if p.DueDate != nil {
		t.DueDate = p.DueDate
	}
	out, err := s.board.UpdateTask(c.Request().Context(), t)
	if err != nil {
		return failure(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) deleteTask(c echo.Context) error {
	if err := s.board.DeleteTask(c.Request().Context(), c.Param("id")); err != nil {
		return failure(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type editingRequest struct {
	Editing     bool    `json:"editing"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	AssignedTo  *string `json:"assignedTo,omitempty"`
}

func (s *Server) setEditing(c echo.Context) error {
	var r editingRequest
	if err := decodeBody(c, &r); err != nil {
		return failure(c, err)
	}
	id := c.Param("id")
	if err := s.board.SetEditing(id, r.Editing); err != nil {
		return failure(c, err)
	}
	edit := board.TaskEdit{Title: r.Title, Description: r.Description, AssignedTo: r.AssignedTo}
	if edit != (board.TaskEdit{}) {
		if err := s.board.Edit(id, edit); err != nil {
			return failure(c, err)
		}
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) saveTask(c echo.Context) error {
	out, err := s.board.Save(c.Request().Context(), c.Param("id"))
	if err != nil {
		return failure(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

type commentRequest struct {
	Text string `json:"text"`
}

func (s *Server) addComment(c echo.Context) error {
	var r commentRequest
	if err := decodeBody(c, &r); err != nil {
		return failure(c, err)
	}
	t, err := s.board.AddComment(c.Request().Context(), c.Param("id"), r.Text)
	if err != nil {
		return failure(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (s *Server) deleteComment(c echo.Context) error {
	err := s.board.DeleteComment(c.Request().Context(), c.Param("id"), c.Param("commentId"), s.opts.UserID)
	if err != nil {
		return failure(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type moveRequest struct {
	Source board.Position  `json:"source"`
	Dest   *board.Position `json:"dest"`
}

type moveResponse struct {
	Applied bool        `json:"applied"`
	Move    *board.Move `json:"move,omitempty"`
}

func (s *Server) move(c echo.Context) error {
	var r moveRequest
	if err := decodeBody(c, &r); err != nil {
		return failure(c, err)
	}
	mv, ok, err := s.board.Move(c.Request().Context(), r.Source, r.Dest)
	if err != nil {
		return failure(c, err)
	}
	resp := moveResponse{Applied: ok}
	if ok {
		resp.Move = &mv
	}
	return c.JSON(http.StatusOK, resp)
}

type inviteRequest struct {
	Email string `json:"email"`
}

func (s *Server) invite(c echo.Context) error {
	var r inviteRequest
	if err := decodeBody(c, &r); err != nil {
		return failure(c, err)
	}
	if strings.TrimSpace(r.Email) == "" {
		return failure(c, fmt.Errorf("%w: email is required", domain.ErrValidation))
	}
	members, err := s.board.Invite(c.Request().Context(), r.Email)
	if err != nil {
		return failure(c, err)
	}
	return c.JSON(http.StatusOK, members)
}

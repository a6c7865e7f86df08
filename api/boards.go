package api

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"

	"taskboard/domain"
)

// ListBoards returns the boards visible to the session user.
func (c *Client) ListBoards(ctx context.Context) ([]domain.Board, error) {
	boards := []domain.Board{}
	err := c.do(ctx, request{op: "list_boards", method: http.MethodGet, path: "/boards", out: &boards})
	return boards, err
}

// CreateBoard creates a board with the given title.
func (c *Client) CreateBoard(ctx context.Context, title string) (domain.Board, error) {
	const op = "create_board"
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Board{}, validationError(op, "title is required")
	}
	var b domain.Board
	err := c.do(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   "/boards",
		body:   map[string]string{"title": title},
		out:    &b,
	})
	return b, err
}

// DeleteBoard removes a board.
func (c *Client) DeleteBoard(ctx context.Context, boardID string) error {
	const op = "delete_board"
	if boardID == "" {
		return validationError(op, "board id is required")
	}
	return c.do(ctx, request{op: op, method: http.MethodDelete, path: "/boards/" + url.PathEscape(boardID)})
}

// GetBoard fetches a single board.
func (c *Client) GetBoard(ctx context.Context, boardID string) (domain.Board, error) {
	const op = "get_board"
	if boardID == "" {
		return domain.Board{}, validationError(op, "board id is required")
	}
	var b domain.Board
	err := c.do(ctx, request{op: op, method: http.MethodGet, path: "/boards/" + url.PathEscape(boardID), out: &b})
	if err == nil {
		b.Members = domain.UniqueMembers(b.Members)
	}
	return b, err
}

// InviteMember adds the user with email to the board and returns the
// updated member set.
func (c *Client) InviteMember(ctx context.Context, boardID, email string) ([]domain.Member, error) {
	const op = "invite_member"
	email = strings.TrimSpace(email)
	if boardID == "" || email == "" {
		return nil, validationError(op, "board id and email are required")
	}
	var raw sonic.NoCopyRawMessage
	err := c.do(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   "/boards/" + url.PathEscape(boardID) + "/invite",
		body:   map[string]string{"userEmail": email},
		out:    &raw,
	})
	if err != nil {
		return nil, err
	}
	members, err := decodeMembers(raw)
	if err != nil {
		return nil, &Error{Op: op, Kind: domain.ErrTransport, Message: "invalid response body", Err: err}
	}
	return domain.UniqueMembers(members), nil
}

// decodeMembers accepts either a bare member list or a board carrying one.
func decodeMembers(raw []byte) ([]domain.Member, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if raw[0] == '[' {
		var members []domain.Member
		err := sonic.Unmarshal(raw, &members)
		return members, err
	}
	var b domain.Board
	if err := sonic.Unmarshal(raw, &b); err != nil {
		return nil, err
	}
	return b.Members, nil
}

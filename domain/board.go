package domain

// Board is a named collection of tasks with an owner and members.
type Board struct {
	ID          string   `json:"_id"`
	Name        string   `json:"name"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	CreatedBy   string   `json:"createdBy,omitempty"`
	Members     []Member `json:"members,omitempty"`
}

// DisplayName prefers Name and falls back to Title, which the board list
// endpoint uses.
func (b Board) DisplayName() string {
	if b.Name != "" {
		return b.Name
	}
	return b.Title
}

// Member is a user with access to a board.
type Member struct {
	ID    string `json:"_id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// UniqueMembers drops members with a repeated or empty ID, keeping the first.
func UniqueMembers(in []Member) []Member {
	seen := make(map[string]struct{}, len(in))
	out := make([]Member, 0, len(in))
	for _, m := range in {
		if m.ID == "" {
			continue
		}
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}

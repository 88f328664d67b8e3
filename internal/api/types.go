package api

// Post is a blog post.
type Post struct {
	ID     int    `json:"id"`
	UserID int    `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// NewPost is the payload for creating a post.
type NewPost struct {
	UserID int    `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// PostUpdate carries the fields to change. Nil fields are not sent.
type PostUpdate struct {
	UserID *int    `json:"userId,omitempty"`
	Title  *string `json:"title,omitempty"`
	Body   *string `json:"body,omitempty"`
}

// User is an account on the backend.
type User struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Website  string `json:"website,omitempty"`
}

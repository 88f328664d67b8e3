package server

import (
	"fmt"
	"slices"
	"sync"

	"github.com/tjfontaine/mobile-api-client/internal/api"
)

// store is the in-memory backing data of the stub backend.
type store struct {
	mu     sync.RWMutex
	posts  []api.Post
	users  []api.User
	nextID int
}

var seedUsers = []api.User{
	{ID: 1, Name: "Leanne Graham", Username: "Bret", Email: "Sincere@april.biz", Phone: "1-770-736-8031 x56442", Website: "hildegard.org"},
	{ID: 2, Name: "Ervin Howell", Username: "Antonette", Email: "Shanna@melissa.tv", Phone: "010-692-6593 x09125", Website: "anastasia.net"},
	{ID: 3, Name: "Clementine Bauch", Username: "Samantha", Email: "Nathan@yesenia.net", Phone: "1-463-123-4447", Website: "ramiro.info"},
	{ID: 4, Name: "Patricia Lebsack", Username: "Karianne", Email: "Julianne.OConner@kory.org", Phone: "493-170-9623 x156", Website: "kale.biz"},
	{ID: 5, Name: "Chelsey Dietrich", Username: "Kamren", Email: "Lucio_Hettinger@annie.ca", Phone: "(254)954-1289", Website: "demarco.info"},
	{ID: 6, Name: "Mrs. Dennis Schulist", Username: "Leopoldo_Corkery", Email: "Karley_Dach@jasper.info", Phone: "1-477-935-8478 x6430", Website: "ola.org"},
	{ID: 7, Name: "Kurtis Weissnat", Username: "Elwyn.Skiles", Email: "Telly.Hoeger@billy.biz", Phone: "210.067.6132", Website: "elvis.io"},
}

const postsPerUser = 3

func newStore() *store {
	s := &store{users: slices.Clone(seedUsers)}
	for _, u := range seedUsers {
		for i := 1; i <= postsPerUser; i++ {
			s.nextID++
			s.posts = append(s.posts, api.Post{
				ID:     s.nextID,
				UserID: u.ID,
				Title:  fmt.Sprintf("%s, post %d", u.Username, i),
				Body:   fmt.Sprintf("Post %d written by %s.", i, u.Name),
			})
		}
	}
	return s
}

// limit returns at most n items; n <= 0 means all.
func limit[T any](items []T, n int) []T {
	if n <= 0 || n >= len(items) {
		return slices.Clone(items)
	}
	return slices.Clone(items[:n])
}

func (s *store) listPosts(n int) []api.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return limit(s.posts, n)
}

func (s *store) listUsers(n int) []api.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return limit(s.users, n)
}

func (s *store) post(id int) (api.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.postIndex(id)
	if i < 0 {
		return api.Post{}, false
	}
	return s.posts[i], true
}

func (s *store) user(id int) (api.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.users, func(u api.User) bool { return u.ID == id })
	if i < 0 {
		return api.User{}, false
	}
	return s.users[i], true
}

func (s *store) createPost(p api.NewPost) api.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	post := api.Post{ID: s.nextID, UserID: p.UserID, Title: p.Title, Body: p.Body}
	s.posts = append(s.posts, post)
	return post
}

// updatePost applies u to post id. With replace set, absent fields are
// zeroed as a PUT would; otherwise only present fields change.
func (s *store) updatePost(id int, u api.PostUpdate, replace bool) (api.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.postIndex(id)
	if i < 0 {
		return api.Post{}, false
	}

	p := s.posts[i]
	if replace {
		p = api.Post{ID: id}
	}
	if u.UserID != nil {
		p.UserID = *u.UserID
	}
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Body != nil {
		p.Body = *u.Body
	}
	s.posts[i] = p
	return p, true
}

func (s *store) deletePost(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.postIndex(id)
	if i < 0 {
		return false
	}
	s.posts = slices.Delete(s.posts, i, i+1)
	return true
}

// postIndex requires s.mu to be held.
func (s *store) postIndex(id int) int {
	return slices.IndexFunc(s.posts, func(p api.Post) bool { return p.ID == id })
}

package mockapi

import (
	"fmt"
	"net/mail"
	"strings"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type User struct {
	ID    int    `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
}

type CreateUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (c CreateUser) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("the name cannot be empty")
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return fmt.Errorf("invalid email address %q", c.Email)
	}
	return nil
}

// UserStore keeps users in insertion order.
type UserStore struct {
	lock   sync.RWMutex
	users  *orderedmap.OrderedMap[int, User]
	nextID int
}

func NewUserStore(users ...User) *UserStore {
	s := UserStore{users: orderedmap.New[int, User](), nextID: 1}
	for _, user := range users {
		s.users.Set(user.ID, user)
		if user.ID >= s.nextID {
			s.nextID = user.ID + 1
		}
	}
	return &s
}

func (s *UserStore) List() []User {
	s.lock.RLock()
	defer s.lock.RUnlock()
	output := make([]User, 0, s.users.Len())
	for pair := s.users.Oldest(); pair != nil; pair = pair.Next() {
		output = append(output, pair.Value)
	}
	return output
}

func (s *UserStore) Get(id int) (User, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.users.Get(id)
}

func (s *UserStore) GetByEmail(email string) (User, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	for pair := s.users.Oldest(); pair != nil; pair = pair.Next() {
		if strings.EqualFold(pair.Value.Email, email) {
			return pair.Value, true
		}
	}
	return User{}, false
}

func (s *UserStore) Create(data CreateUser) User {
	s.lock.Lock()
	defer s.lock.Unlock()
	user := User{ID: s.nextID, Name: data.Name, Email: data.Email}
	s.nextID++
	s.users.Set(user.ID, user)
	return user
}

func (s *UserStore) Update(id int, data CreateUser) (User, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, found := s.users.Get(id); !found {
		return User{}, false
	}
	user := User{ID: id, Name: data.Name, Email: data.Email}
	s.users.Set(id, user)
	return user, true
}

func (s *UserStore) Delete(id int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.users.Delete(id)
}

package mockapi

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/users.yaml
var defaultUsers []byte

type userFixtures struct {
	Users []User `yaml:"users"`
}

// LoadUsers parses a yaml document with a top level users list.
func LoadUsers(data []byte) ([]User, error) {
	var fixtures userFixtures
	err := yaml.Unmarshal(data, &fixtures)
	if err != nil {
		return nil, err
	}
	seen := map[int]bool{}
	for _, user := range fixtures.Users {
		if user.ID <= 0 {
			return nil, fmt.Errorf("user %q has an invalid id %d", user.Email, user.ID)
		}
		if seen[user.ID] {
			return nil, fmt.Errorf("duplicate user id %d", user.ID)
		}
		seen[user.ID] = true
	}
	return fixtures.Users, nil
}

// DefaultUsers returns the users the mock backend is seeded with.
func DefaultUsers() []User {
	users, err := LoadUsers(defaultUsers)
	if err != nil {
		panic(err)
	}
	return users
}

package intra

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserDTO_Parsing(t *testing.T) {
	jsonData := `{
    "id": 74354,
    "login": "jdoe",
    "email": "jdoe@student.42.fr",
    "displayname": "John Doe",
    "kind": "student",
    "staff?": false,
    "active?": true,
    "image": {
        "link": "https://cdn.intra.42.fr/users/jdoe.jpg"
    },
    "cursus_users": [
        {
            "level": 3.14,
            "grade": "Cadet",
            "begin_at": "2024-09-02T07:42:00Z",
            "cursus": {
                "id": 21,
                "name": "42cursus",
                "slug": "42cursus"
            }
        }
    ]
}`

	var user UserDTO
	err := json.Unmarshal([]byte(jsonData), &user)
	assert.NoError(t, err)

	assert.Equal(t, 74354, user.ID)
	assert.Equal(t, "jdoe", user.Login)
	assert.Equal(t, "John Doe", user.DisplayName)
	assert.False(t, user.Staff)
	assert.True(t, user.Active)
	assert.Equal(t, "https://cdn.intra.42.fr/users/jdoe.jpg", user.Image.Link)

	assert.Len(t, user.CursusUsers, 1)
	cu := user.CursusUsers[0]
	assert.Equal(t, 3.14, cu.Level)
	assert.Equal(t, "42cursus", cu.Cursus.Slug)
}

func TestMapper_VerifiedIdentityFromDTO(t *testing.T) {
	user := &UserDTO{
		ID:          1,
		Login:       "JDoe",
		Email:       "jdoe@student.42.fr",
		DisplayName: "John Doe",
		Active:      true,
		Image:       ImageDTO{Link: "https://cdn.intra.42.fr/users/jdoe.jpg"},
		CursusUsers: []CursusUserDTO{
			{Level: 1.0, Cursus: CursusDTO{Slug: "c-piscine"}},
			{Level: 7.42, Cursus: CursusDTO{Slug: "42cursus"}},
		},
	}

	mapper := NewMapper()
	identity := mapper.VerifiedIdentityFromDTO(user)

	assert.Equal(t, "jdoe", identity.Login)
	assert.Equal(t, "John Doe", identity.DisplayName)
	assert.True(t, identity.Active)
	assert.Equal(t, 7.42, identity.CursusLevel)
	assert.False(t, identity.VerifiedAt.IsZero())
}

func TestMapper_NilUser(t *testing.T) {
	mapper := NewMapper()
	assert.Nil(t, mapper.VerifiedIdentityFromDTO(nil))
}

func TestTokenDTO_IsExpired(t *testing.T) {
	var nilToken *TokenDTO
	assert.True(t, nilToken.IsExpired())

	fresh := &TokenDTO{
		AccessToken: "tok",
		ExpiresIn:   7200,
		ObtainedAt:  time.Now(),
	}
	assert.False(t, fresh.IsExpired())

	stale := &TokenDTO{
		AccessToken: "tok",
		ExpiresIn:   7200,
		ObtainedAt:  time.Now().Add(-3 * time.Hour),
	}
	assert.True(t, stale.IsExpired())
}

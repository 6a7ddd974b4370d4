package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrBadInitData means the launch payload failed signature or
// freshness checks and must not be trusted.
var ErrBadInitData = errors.New("invalid web app init data")

// initDataMaxAge bounds how old a signed payload may be. The platform
// signs auth_date at launch; anything older is treated as replayed.
const initDataMaxAge = 24 * time.Hour

// webAppUser is the signed user object carried inside init data.
type webAppUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

func (u *webAppUser) displayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}

// validateInitData verifies the HMAC signature the platform puts on
// the web view launch payload and returns the signed user. The secret
// key is HMAC-SHA256 of the bot token keyed with "WebAppData"; the
// hash field is HMAC-SHA256 of the remaining fields sorted as
// key=value lines, keyed with that secret.
func validateInitData(initData, botToken string, now time.Time) (*webAppUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, ErrBadInitData
	}

	gotHash := values.Get("hash")
	if gotHash == "" {
		return nil, ErrBadInitData
	}
	values.Del("hash")

	pairs := make([]string, 0, len(values))
	for key := range values {
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)
	dataCheckString := strings.Join(pairs, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(dataCheckString))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(gotHash)) {
		return nil, ErrBadInitData
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, ErrBadInitData
	}
	if now.Sub(time.Unix(authDate, 0)) > initDataMaxAge {
		return nil, ErrBadInitData
	}

	var user webAppUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil || user.ID == 0 {
		return nil, ErrBadInitData
	}
	return &user, nil
}

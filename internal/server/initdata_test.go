package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBotToken = "12345:test-token"

// signInitData builds a payload signed the way the platform signs the
// web view launch parameters.
func signInitData(botToken string, authDate time.Time, userJSON string) string {
	values := url.Values{}
	values.Set("auth_date", fmt.Sprintf("%d", authDate.Unix()))
	values.Set("user", userJSON)
	values.Set("query_id", "AAHdF6IQAAAAAN0XohDhrOrc")

	pairs := make([]string, 0, len(values))
	for key := range values {
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))

	values.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return values.Encode()
}

func TestValidateInitData(t *testing.T) {
	now := time.Now()
	userJSON := `{"id":42,"username":"alice","first_name":"Alice"}`

	user, err := validateInitData(signInitData(testBotToken, now, userJSON), testBotToken, now)
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "alice", user.displayName())
}

func TestValidateInitDataRejectsTampering(t *testing.T) {
	now := time.Now()
	signed := signInitData(testBotToken, now, `{"id":42,"username":"alice","first_name":"Alice"}`)

	// Swapping in another user ID must invalidate the signature.
	tampered := strings.Replace(signed, "42", "7", 1)
	_, err := validateInitData(tampered, testBotToken, now)
	assert.ErrorIs(t, err, ErrBadInitData)
}

func TestValidateInitDataRejectsWrongToken(t *testing.T) {
	now := time.Now()
	signed := signInitData("99999:other-token", now, `{"id":42,"username":"alice"}`)

	_, err := validateInitData(signed, testBotToken, now)
	assert.ErrorIs(t, err, ErrBadInitData)
}

func TestValidateInitDataRejectsMissingHash(t *testing.T) {
	values := url.Values{}
	values.Set("auth_date", fmt.Sprintf("%d", time.Now().Unix()))
	values.Set("user", `{"id":42}`)

	_, err := validateInitData(values.Encode(), testBotToken, time.Now())
	assert.ErrorIs(t, err, ErrBadInitData)
}

func TestValidateInitDataRejectsStalePayload(t *testing.T) {
	now := time.Now()
	signed := signInitData(testBotToken, now.Add(-25*time.Hour), `{"id":42,"username":"alice"}`)

	_, err := validateInitData(signed, testBotToken, now)
	assert.ErrorIs(t, err, ErrBadInitData)
}

func TestValidateInitDataFirstNameFallback(t *testing.T) {
	now := time.Now()
	signed := signInitData(testBotToken, now, `{"id":42,"first_name":"Alice"}`)

	user, err := validateInitData(signed, testBotToken, now)
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.displayName())
}

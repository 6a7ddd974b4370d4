package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"telegram-tap-game/internal/pkg/metrics"
	"telegram-tap-game/internal/repository"
)

// Referral errors.
var (
	// ErrSelfReferral means a user tried to redeem their own invite
	// link. A silent no-op from the caller's perspective.
	ErrSelfReferral = errors.New("cannot refer yourself")

	// ErrAlreadyCredited means the user already received the one-time
	// invite bonus. A silent no-op from the caller's perspective.
	ErrAlreadyCredited = repository.ErrAlreadyCredited

	// ErrBadInviteToken means the start parameter is not an invite token.
	ErrBadInviteToken = errors.New("malformed invite token")
)

// invitePrefix is the start-parameter prefix carried from the chat
// platform into the embedded app at launch.
const invitePrefix = "ref_"

// ReferralService handles invite link redemption.
type ReferralService struct {
	referrals *repository.ReferralRepository
}

// NewReferralService creates a new ReferralService instance.
func NewReferralService(referrals *repository.ReferralRepository) *ReferralService {
	return &ReferralService{referrals: referrals}
}

// ParseInviteToken extracts the referrer ID from a `ref_<id>` token.
func ParseInviteToken(token string) (int64, error) {
	raw, ok := strings.CutPrefix(token, invitePrefix)
	if !ok {
		return 0, ErrBadInviteToken
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrBadInviteToken
	}
	return id, nil
}

// InviteToken builds the start parameter for a user's invite link.
func InviteToken(referrerID int64) string {
	return invitePrefix + strconv.FormatInt(referrerID, 10)
}

// InviteLink builds the full deep link for a user's invites.
func InviteLink(botUsername string, referrerID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, InviteToken(referrerID))
}

// Apply credits a referral for an invited user. Self-referrals and
// repeat redemptions are rejected without state change; both are
// expected outcomes the caller should swallow. Calling Apply twice for
// the same invited user, even concurrently, credits exactly once.
func (s *ReferralService) Apply(ctx context.Context, invitedID, referrerID int64) error {
	if invitedID == referrerID {
		return ErrSelfReferral
	}

	if err := s.referrals.Apply(ctx, invitedID, referrerID); err != nil {
		if errors.Is(err, repository.ErrAlreadyCredited) {
			return ErrAlreadyCredited
		}
		return fmt.Errorf("failed to apply referral: %w", err)
	}

	metrics.ReferralsCredited.Inc()
	log.Info().
		Int64("invited", invitedID).
		Int64("referrer", referrerID).
		Msg("Referral credited")
	return nil
}

// InviteCount returns how many users this referrer has invited.
func (s *ReferralService) InviteCount(ctx context.Context, referrerID int64) (int, error) {
	return s.referrals.InviteCount(ctx, referrerID)
}

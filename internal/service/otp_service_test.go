package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stajtakip/internship-api/pkg/config"
	appErrors "github.com/stajtakip/internship-api/pkg/errors"
)

type stubLimiter struct{ allow bool }

func (s stubLimiter) Allow(string) bool { return s.allow }

func TestOTPGateIssueFormat(t *testing.T) {
	gate := NewOTPGate(config.OTPConfig{Digits: 6, TTL: 72 * time.Hour}, nil, nil)
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	gate.WithClock(func() time.Time { return now })

	code, expires, err := gate.Issue()
	require.NoError(t, err)
	require.Len(t, code, 6)
	for _, r := range code {
		require.True(t, r >= '0' && r <= '9')
	}
	require.Equal(t, now.Add(72*time.Hour), expires)
}

func TestOTPGateVerify(t *testing.T) {
	gate := NewOTPGate(config.OTPConfig{Digits: 6, TTL: time.Hour}, nil, nil)
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	gate.WithClock(func() time.Time { return now })

	code := "482913"
	expires := now.Add(time.Hour)

	require.NoError(t, gate.Verify("application:7", "482913", &code, &expires))

	err := gate.Verify("application:7", "000000", &code, &expires)
	require.True(t, appErrors.Is(err, appErrors.ErrCredentialInvalid.Code))

	err = gate.Verify("application:7", "", &code, &expires)
	require.True(t, appErrors.Is(err, appErrors.ErrCredentialInvalid.Code))

	err = gate.Verify("application:7", "482913", nil, &expires)
	require.True(t, appErrors.Is(err, appErrors.ErrCredentialInvalid.Code))

	stale := now.Add(-time.Minute)
	err = gate.Verify("application:7", "482913", &code, &stale)
	require.True(t, appErrors.Is(err, appErrors.ErrCredentialInvalid.Code))
}

func TestOTPGateVerifyThrottled(t *testing.T) {
	gate := NewOTPGate(config.OTPConfig{Digits: 6, TTL: time.Hour}, stubLimiter{allow: false}, nil)
	code := "482913"
	expires := time.Now().Add(time.Hour)
	err := gate.Verify("diary:3", "482913", &code, &expires)
	require.True(t, appErrors.Is(err, appErrors.ErrRateLimited.Code))
}

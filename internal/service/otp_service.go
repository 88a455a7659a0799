package service

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/stajtakip/internship-api/pkg/config"
	appErrors "github.com/stajtakip/internship-api/pkg/errors"
)

// attemptLimiter throttles credential guesses per record.
type attemptLimiter interface {
	Allow(key string) bool
}

// OTPGate issues and verifies the short-lived numeric codes that stand in for
// a company login. Codes are bound to one application or diary record; the
// record's stored code and expiry are passed back in on verification.
type OTPGate struct {
	digits  int
	ttl     time.Duration
	clock   func() time.Time
	limiter attemptLimiter
	logger  *zap.Logger
}

// NewOTPGate constructs the gate. A nil limiter disables throttling.
func NewOTPGate(cfg config.OTPConfig, limiter attemptLimiter, logger *zap.Logger) *OTPGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	digits := cfg.Digits
	if digits < 4 || digits > 10 {
		digits = 6
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &OTPGate{
		digits:  digits,
		ttl:     ttl,
		clock:   time.Now,
		limiter: limiter,
		logger:  logger,
	}
}

// WithClock overrides the time source, for tests.
func (g *OTPGate) WithClock(clock func() time.Time) *OTPGate {
	if clock != nil {
		g.clock = clock
	}
	return g
}

// Issue generates a fresh numeric code and its expiry.
func (g *OTPGate) Issue() (string, time.Time, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(g.digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate credential: %w", err)
	}
	code := fmt.Sprintf("%0*d", g.digits, n)
	return code, g.clock().Add(g.ttl), nil
}

// Verify checks a presented code against the stored code+expiry of the record
// identified by key. Missing, expired, and mismatched codes are all reported
// as the same CredentialInvalid so callers cannot probe which it was.
func (g *OTPGate) Verify(key, presented string, stored *string, expiresAt *time.Time) error {
	if g.limiter != nil && !g.limiter.Allow(key) {
		g.logger.Warn("credential attempts throttled", zap.String("key", key))
		return appErrors.ErrRateLimited
	}
	if presented == "" || stored == nil || *stored == "" || expiresAt == nil {
		return appErrors.ErrCredentialInvalid
	}
	if g.clock().After(*expiresAt) {
		return appErrors.ErrCredentialInvalid
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(*stored)) != 1 {
		return appErrors.ErrCredentialInvalid
	}
	return nil
}

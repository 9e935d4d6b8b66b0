package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"meetly/config"
	"meetly/internal/domain"
	"meetly/internal/logger"
	"meetly/internal/models"
	"meetly/internal/repository"
	"meetly/pkg/sms"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{8,15}$`)

type SendOTPResult struct {
	Success   bool      `json:"success"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// OTPService issues and checks one-time phone verification codes.
type OTPService struct {
	store  repository.Store
	sender sms.Sender
	cfg    config.OTPConfig
	now    func() time.Time
}

func NewOTPService(store repository.Store, sender sms.Sender, cfg config.OTPConfig) *OTPService {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &OTPService{store: store, sender: sender, cfg: cfg, now: time.Now}
}

func normalizePhone(phone string) (string, error) {
	p := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	if !phonePattern.MatchString(p) {
		return "", domain.Errorf(domain.KindValidation, "invalid phone number")
	}
	return p, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Send issues a new code for phone. Earlier unused codes stop working.
func (s *OTPService) Send(ctx context.Context, userID uint, phone string) (*SendOTPResult, error) {
	phone, err := normalizePhone(phone)
	if err != nil {
		return nil, err
	}
	code, err := generateCode()
	if err != nil {
		return nil, domain.Internal("could not generate code", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.Internal("could not hash code", err)
	}
	now := s.now()
	expires := now.Add(s.cfg.TTL)
	err = s.store.Transaction(ctx, func(tx repository.Repos) error {
		if err := tx.OTPs().InvalidateAll(ctx, userID, phone, now); err != nil {
			return err
		}
		return tx.OTPs().Create(ctx, &models.OTPCode{
			UserID:    userID,
			Phone:     phone,
			CodeHash:  string(hash),
			ExpiresAt: expires,
		})
	})
	if err != nil {
		return nil, domain.Internal("could not store code", err)
	}
	msg := fmt.Sprintf("Your Meetly verification code is %s", code)
	if err := s.sender.Send(ctx, phone, msg); err != nil {
		logger.Log.Error("otp delivery failed", zap.Uint("user_id", userID), zap.String("phone", sms.Mask(phone)), zap.Error(err))
		return nil, domain.Internal("could not send code", err)
	}
	return &SendOTPResult{Success: true, ExpiresAt: expires}, nil
}

// Verify checks code against the newest active code for phone and marks the
// caller's phone verified on success. Wrong guesses count against the code.
func (s *OTPService) Verify(ctx context.Context, userID uint, phone, code string) error {
	phone, err := normalizePhone(phone)
	if err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if len(code) != 6 {
		return domain.Errorf(domain.KindValidation, "otpCode must be 6 digits")
	}

	// outcome is returned after commit so a failed attempt is still counted.
	var outcome error
	err = s.store.Transaction(ctx, func(tx repository.Repos) error {
		o, err := tx.OTPs().GetActiveForUpdate(ctx, userID, phone)
		if errors.Is(err, repository.ErrNotFound) {
			outcome = domain.Errorf(domain.KindNotFound, "no active code for this phone")
			return nil
		}
		if err != nil {
			return err
		}
		now := s.now()
		if now.After(o.ExpiresAt) {
			outcome = domain.Errorf(domain.KindValidation, "code expired")
			return nil
		}
		if o.Attempts >= s.cfg.MaxAttempts {
			outcome = domain.Errorf(domain.KindValidation, "too many attempts, request a new code")
			return nil
		}
		if bcrypt.CompareHashAndPassword([]byte(o.CodeHash), []byte(code)) != nil {
			o.Attempts++
			outcome = domain.Errorf(domain.KindValidation, "incorrect code")
			return tx.OTPs().Save(ctx, o)
		}
		o.ConsumedAt = &now
		if err := tx.OTPs().Save(ctx, o); err != nil {
			return err
		}
		return tx.Users().MarkPhoneVerified(ctx, userID, phone, now)
	})
	if err != nil {
		return domain.Internal("could not verify code", err)
	}
	return outcome
}

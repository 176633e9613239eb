package identityprovider

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/workspace-management/internal"
)

const devCodeTTL = 10 * time.Minute

type issuedCode struct {
	hash      []byte
	expiresAt time.Time
}

// DevProvider implements the verification flow in process for development
// and tests: codes are logged instead of emailed, and only their bcrypt
// hashes are kept in memory.
type DevProvider struct {
	mu         sync.Mutex
	codes      map[string]issuedCode
	bcryptCost int
	logger     *slog.Logger
}

func NewDevProvider(bcryptCost int, logger *slog.Logger) *DevProvider {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &DevProvider{
		codes:      make(map[string]issuedCode),
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (p *DevProvider) RequestCode(_ context.Context, email string) error {
	code, err := randomCode()
	if err != nil {
		return internal.NewInternalError("could not generate verification code", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), p.bcryptCost)
	if err != nil {
		return internal.NewInternalError("could not hash verification code", err)
	}

	p.mu.Lock()
	p.codes[email] = issuedCode{hash: hash, expiresAt: time.Now().Add(devCodeTTL)}
	p.mu.Unlock()

	// there is no mail delivery in dev; the code goes to the log
	p.logger.Info("dev verification code issued", "email", email, "code", code)
	return nil
}

func (p *DevProvider) Verify(_ context.Context, email, code string) (*Identity, error) {
	p.mu.Lock()
	issued, ok := p.codes[email]
	p.mu.Unlock()

	if !ok || time.Now().After(issued.expiresAt) {
		return nil, internal.ErrInvalidCode
	}
	if err := bcrypt.CompareHashAndPassword(issued.hash, []byte(code)); err != nil {
		return nil, internal.ErrInvalidCode
	}

	p.mu.Lock()
	delete(p.codes, email)
	p.mu.Unlock()

	return &Identity{
		ExternalID: "dev:" + email,
		Email:      email,
	}, nil
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

package authcore

import (
	"context"
	"time"

	"github.com/MrEthical07/authcore/audit"
	"github.com/MrEthical07/authcore/internal/random"
	"github.com/MrEthical07/authcore/mfa"
	"github.com/MrEthical07/authcore/model"
	"github.com/MrEthical07/authcore/store"
	"github.com/google/uuid"
)

// Clock supplies the current time. Every decision receives it explicitly.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces unique identifiers for sessions, challenges and
// audit entries.
type IDGenerator interface {
	NewID() string
}

// TokenIssuer mints the bearer token for a new session.
type TokenIssuer interface {
	Issue(sessionID, userID, tenantID string, issuedAt time.Time) (string, error)
}

// TokenVerifier is implemented by issuers whose tokens can be checked
// without a store lookup. It returns the session ID the token names.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// PasswordVerifier checks a password against a stored hash.
type PasswordVerifier interface {
	Verify(password, encoded string) (bool, error)
}

// TOTPVerifier checks a time-based code against a secret at now.
type TOTPVerifier interface {
	Verify(secret, code string, now time.Time) (bool, error)
}

// TOTPEnroller generates a new secret and provisioning URI for account.
type TOTPEnroller interface {
	Generate(account string) (mfa.Enrollment, error)
}

// UserRepository loads users and applies deltas. Update must apply the
// delta returned by fn atomically with respect to other Updates for the
// same id.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, id string, fn store.UserMutator) (*model.User, error)
	ConsumeBackupCode(ctx context.Context, id, code string) (bool, error)
}

// SessionRepository persists sessions. Update must keep LastAccessedAt
// monotonic and must not overwrite an existing RevokedAt.
type SessionRepository interface {
	Create(ctx context.Context, s *model.Session) error
	Get(ctx context.Context, id string) (*model.Session, error)
	GetByToken(ctx context.Context, token string) (*model.Session, error)
	ListByUser(ctx context.Context, userID string) ([]model.Session, error)
	Update(ctx context.Context, id string, d model.SessionDelta) (*model.Session, error)
	Delete(ctx context.Context, id string) error
}

// AuditSink receives recorded audit entries in order.
type AuditSink interface {
	Emit(ctx context.Context, entry audit.Entry)
}

// AuditStore is append-only audit persistence, such as
// postgres.AuditStore.
type AuditStore interface {
	Append(ctx context.Context, entry audit.Entry) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type uuidGenerator struct{}

func (uuidGenerator) NewID() string { return uuid.NewString() }

// opaqueTokens issues random bearer tokens that carry no claims.
type opaqueTokens struct {
	size int
}

func (o opaqueTokens) Issue(string, string, string, time.Time) (string, error) {
	return random.Token(o.size)
}

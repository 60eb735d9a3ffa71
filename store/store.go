// Package store holds what the repository implementations share: the
// sentinel errors callers match on and the backup-code consume step.
//
// Implementations live in sub-packages:
//
//   - memory: process-local maps guarded by a mutex
//   - redisstore: go-redis backed users and sessions
//   - postgres: append-only audit entries over pgx
package store

import (
	"errors"

	"github.com/MrEthical07/authcore/mfa"
	"github.com/MrEthical07/authcore/model"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrExists   = errors.New("record already exists")
	ErrConflict = errors.New("concurrent update conflict")
)

// UserMutator computes the delta to apply to the current snapshot.
// Returning an empty delta skips the write.
type UserMutator func(current model.User) (model.UserDelta, error)

// ConsumeBackupCode is the mutator used by ConsumeBackupCode
// implementations. consumed is set when the code was unused and is now
// marked.
func ConsumeBackupCode(code string, consumed *bool) UserMutator {
	return func(current model.User) (model.UserDelta, error) {
		d := mfa.MarkBackupCodeUsed(current, code)
		*consumed = !d.Empty()
		return d, nil
	}
}

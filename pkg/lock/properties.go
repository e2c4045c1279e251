package lock

import (
	"context"

	"github.com/backkem/senselock/pkg/message"
	"github.com/google/uuid"
)

// GetInfo reads a lock information property.
func (l *Lock) GetInfo(ctx context.Context, property int64) (message.Value, error) {
	if err := l.ensureAuthorized(ctx); err != nil {
		return message.Value{}, err
	}
	return request(ctx, l, GetInfo(property), true)
}

// GetConfig reads a lock configuration property.
func (l *Lock) GetConfig(ctx context.Context, property int64) (message.Value, error) {
	if err := l.ensureAuthorized(ctx); err != nil {
		return message.Value{}, err
	}
	return request(ctx, l, GetConfig(property), true)
}

// SetConfig writes a configuration property and returns the lock's
// updated data. The change is attributed to user; uuid.Nil selects a new
// random identifier.
func (l *Lock) SetConfig(ctx context.Context, property, value int64, user uuid.UUID) (*Data, error) {
	if err := l.ensureAuthorized(ctx); err != nil {
		return nil, err
	}
	user, err := l.userID(user)
	if err != nil {
		return nil, err
	}
	return request(ctx, l, SetConfig(property, message.Int(value), user), true)
}

// SetState writes a state property, such as the bolt position, and returns
// the lock's updated data. The change is attributed to user; uuid.Nil
// selects a new random identifier.
func (l *Lock) SetState(ctx context.Context, property, value int64, user uuid.UUID) (*Data, error) {
	if err := l.ensureAuthorized(ctx); err != nil {
		return nil, err
	}
	user, err := l.userID(user)
	if err != nil {
		return nil, err
	}
	return request(ctx, l, SetState(property, message.Int(value), user), true)
}

func (l *Lock) userID(user uuid.UUID) (uuid.UUID, error) {
	if user != uuid.Nil {
		return user, nil
	}
	return uuid.NewRandomFromReader(l.config.Rand)
}

package lock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// HasAccessCodes reports whether any access code is stored on the lock.
func (l *Lock) HasAccessCodes(ctx context.Context) (bool, error) {
	if err := l.ensureAuthorized(ctx); err != nil {
		return false, err
	}
	return request(ctx, l, HasAccessCodes(), true)
}

// GetAccessCodes returns every stored access code, in the order the lock
// lists them. The listing is cached until the next write.
func (l *Lock) GetAccessCodes(ctx context.Context) ([]AccessCode, error) {
	if err := l.ensureAuthorized(ctx); err != nil {
		return nil, err
	}

	l.mu.Lock()
	cached := l.accessCodes
	l.mu.Unlock()
	if cached != nil {
		return cloneAccessCodes(cached), nil
	}

	if l.log != nil {
		l.log.Debug("reading access codes")
	}

	has, err := l.HasAccessCodes(ctx)
	if err != nil {
		return nil, err
	}

	codes := []AccessCode{}
	for more := has; more; {
		page, err := request(ctx, l, GetAccessCode(), true)
		if err != nil {
			return nil, err
		}
		codes = append(codes, page.Result)
		more = page.More
	}

	l.mu.Lock()
	l.accessCodes = codes
	l.mu.Unlock()

	if l.log != nil {
		l.log.Debugf("read %d access codes", len(codes))
	}
	return cloneAccessCodes(codes), nil
}

// GetAccessCode finds an access code by its keypad code. It fails with
// ErrNotFound when no stored code matches.
func (l *Lock) GetAccessCode(ctx context.Context, code int64) (AccessCode, error) {
	codes, err := l.GetAccessCodes(ctx)
	if err != nil {
		return AccessCode{}, err
	}
	for _, ac := range codes {
		if ac.Code == code {
			return ac, nil
		}
	}
	return AccessCode{}, fmt.Errorf("%w: code %d", ErrNotFound, code)
}

// SetAccessCode creates ac, or updates the stored code with the same ID
// when ac.ID is set. Unset fields of an update keep their stored values.
// A new code without a name gets a generated one. The stored record is
// read back and returned.
func (l *Lock) SetAccessCode(ctx context.Context, ac AccessCode) (AccessCode, error) {
	l.invalidateAccessCodes()

	if err := ac.Validate(); err != nil {
		return AccessCode{}, err
	}
	if err := l.ensureAuthorized(ctx); err != nil {
		return AccessCode{}, err
	}

	update := ac.ID != uuid.Nil
	if update {
		current, err := l.findAccessCode(ctx, ac.ID)
		if err != nil {
			return AccessCode{}, err
		}
		ac = ac.Merge(current)
	} else {
		id, err := uuid.NewRandomFromReader(l.config.Rand)
		if err != nil {
			return AccessCode{}, err
		}
		ac.ID = id
	}

	if ac.Name == "" {
		name, err := DefaultName(l.config.Rand)
		if err != nil {
			return AccessCode{}, err
		}
		ac.Name = name
	}

	cmd, err := SetAccessCode(ac, update)
	if err != nil {
		return AccessCode{}, err
	}

	if l.log != nil {
		l.log.Debugf("saving %s", ac)
	}

	_, err = request(ctx, l, cmd, true)
	l.invalidateAccessCodes()
	if err != nil {
		return AccessCode{}, err
	}

	return l.GetAccessCode(ctx, ac.Code)
}

// DeleteAccessCode removes the access code with the given keypad code.
func (l *Lock) DeleteAccessCode(ctx context.Context, code int64) error {
	if err := l.ensureAuthorized(ctx); err != nil {
		return err
	}

	_, err := request(ctx, l, DeleteAccessCode(code), true)
	l.invalidateAccessCodes()
	return err
}

func (l *Lock) findAccessCode(ctx context.Context, id uuid.UUID) (AccessCode, error) {
	codes, err := l.GetAccessCodes(ctx)
	if err != nil {
		return AccessCode{}, err
	}
	for _, ac := range codes {
		if ac.ID == id {
			return ac, nil
		}
	}
	return AccessCode{}, fmt.Errorf("%w: id %s", ErrNotFound, id)
}

// cloneAccessCodes copies codes so callers cannot modify the cache. The
// copy is never nil.
func cloneAccessCodes(codes []AccessCode) []AccessCode {
	out := make([]AccessCode, len(codes))
	copy(out, codes)
	return out
}

func (l *Lock) invalidateAccessCodes() {
	l.mu.Lock()
	l.accessCodes = nil
	l.mu.Unlock()
}

package securechannel

import (
	"github.com/backkem/senselock/pkg/crypto"
	"github.com/backkem/senselock/pkg/session"
)

// SessionKeys is the key material of an encrypted session.
type SessionKeys struct {
	Key []byte
	ID  []byte
}

// DeriveSessionKeys derives the session key and identifier.
//
//	okm = HKDF-SHA256(
//	    inputKey = 0x02 || clientSalt || serverSalt || secret,
//	    salt     = HKDFSalt,
//	    info     = "session key",
//	    len      = 32,
//	)
//	key = okm[0:16], id = okm[16:32]
func DeriveSessionKeys(clientSalt, serverSalt, secret []byte) (SessionKeys, error) {
	if len(clientSalt) != SaltSize || len(serverSalt) != SaltSize {
		return SessionKeys{}, ErrInvalidSalt
	}

	ikm := make([]byte, 0, len(SessionSaltPrefix)+2*SaltSize+len(secret))
	ikm = append(ikm, SessionSaltPrefix...)
	ikm = append(ikm, clientSalt...)
	ikm = append(ikm, serverSalt...)
	ikm = append(ikm, secret...)

	okm, err := crypto.HKDFSHA256(ikm, HKDFSalt, HKDFInfo, session.KeySize+session.IDSize)
	if err != nil {
		return SessionKeys{}, err
	}

	return SessionKeys{
		Key: okm[:session.KeySize],
		ID:  okm[session.KeySize:],
	}, nil
}

// NewSessions builds the session pair for one end of the connection.
func (k SessionKeys) NewSessions(role session.Role) (*session.Pair, error) {
	return session.NewPair(k.Key, k.ID, role)
}

package securechannel

import (
	"bytes"
	"fmt"
)

// ConnectionRequest builds a secure connection request carrying the
// client salt.
func ConnectionRequest(clientSalt []byte) ([]byte, error) {
	if len(clientSalt) != SaltSize {
		return nil, ErrInvalidSalt
	}

	req := make([]byte, 0, len(requestPrefix)+len(securePrefix)+SaltSize)
	req = append(req, requestPrefix...)
	req = append(req, securePrefix...)
	return append(req, clientSalt...), nil
}

// InsecureConnectionRequest builds the connection request used while
// pairing.
func InsecureConnectionRequest() []byte {
	req := make([]byte, 0, len(requestPrefix)+len(insecurePrefix))
	req = append(req, requestPrefix...)
	return append(req, insecurePrefix...)
}

// ParseConnectionResponse extracts the server salt from a secure
// connection reply.
func ParseConnectionResponse(resp []byte) ([]byte, error) {
	if len(resp) != ConnectionResponseSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidConnectionResponse, len(resp))
	}
	return append([]byte{}, resp[ConnectionResponseSize-SaltSize:]...), nil
}

// ParseConnectionRequest is the lock side of ConnectionRequest. It reports
// whether the request is secure and returns the client salt if so.
func ParseConnectionRequest(req []byte) (secure bool, clientSalt []byte, err error) {
	if !bytes.HasPrefix(req, requestPrefix) {
		return false, nil, ErrInvalidConnectionRequest
	}
	body := req[len(requestPrefix):]

	switch {
	case bytes.Equal(body, insecurePrefix):
		return false, nil, nil
	case bytes.HasPrefix(body, securePrefix) && len(body) == len(securePrefix)+SaltSize:
		return true, append([]byte{}, body[len(securePrefix):]...), nil
	}
	return false, nil, ErrInvalidConnectionRequest
}

// ConnectionResponse is the lock side of ParseConnectionResponse.
// The five leading bytes echo the request and secure prefixes.
func ConnectionResponse(serverSalt []byte) ([]byte, error) {
	if len(serverSalt) != SaltSize {
		return nil, ErrInvalidSalt
	}

	resp := make([]byte, 0, ConnectionResponseSize)
	resp = append(resp, requestPrefix...)
	resp = append(resp, securePrefix[:ConnectionResponseSize-SaltSize-len(requestPrefix)]...)
	return append(resp, serverSalt...), nil
}

// InsecureConnectionResponse acknowledges an insecure connection request.
func InsecureConnectionResponse() []byte {
	return append(append([]byte{}, requestPrefix...), insecurePrefix[:3]...)
}

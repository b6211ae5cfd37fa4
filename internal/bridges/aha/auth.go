package aha

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // mandated by the gateway's login protocol
	"encoding/hex"
	"fmt"
	"net/url"

	"golang.org/x/text/encoding/unicode"
)

// loginPath is the session endpoint.
const loginPath = "/login_sid.lua"

// utf16le encodes the hash input the way the gateway does: little-endian
// 16-bit code units without a byte order mark.
var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Response computes the login response for a challenge:
//
//	challenge + "-" + hex(md5(UTF-16LE(challenge + "-" + password)))
func Response(challenge, password string) string {
	input, err := utf16le.NewEncoder().String(challenge + "-" + password)
	if err != nil {
		// The UTF-16 encoder replaces invalid UTF-8 instead of failing.
		input = challenge + "-" + password
	}
	sum := md5.Sum([]byte(input)) //nolint:gosec // see import
	return challenge + "-" + hex.EncodeToString(sum[:])
}

// Authenticate performs the two-round login and returns the session id.
//
// Parameters:
//   - ctx: Context for cancellation
//   - username: Gateway user, may be empty for password-only setups
//   - password: Gateway password
//
// Returns:
//   - string: Session id
//   - error: *InvalidCredentialsError (Is ErrInvalidCredentials),
//     ErrInsufficientPermission, or a wrapped ErrFetchFailed
func (c *Client) Authenticate(ctx context.Context, username, password string) (string, error) {
	first, err := c.sessionInfo(ctx, nil)
	if err != nil {
		return "", err
	}

	if first.Authenticated() {
		c.logger.Debug("gateway returned an existing session")
		return first.SID, nil
	}

	query := url.Values{}
	query.Set("username", username)
	query.Set("response", Response(first.Challenge, password))

	second, err := c.sessionInfo(ctx, query)
	if err != nil {
		return "", err
	}

	if !second.Authenticated() {
		return "", &InvalidCredentialsError{BlockTime: second.BlockTime}
	}
	if !second.Has(HomeAuto) {
		return "", ErrInsufficientPermission
	}

	c.logger.Info("logged in to gateway", "user", username)
	return second.SID, nil
}

func (c *Client) sessionInfo(ctx context.Context, query url.Values) (*SessionInfo, error) {
	body, err := c.get(ctx, loginPath, query)
	if err != nil {
		return nil, err
	}

	info, err := ParseSessionInfo(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailed, loginPath, err)
	}
	return info, nil
}

package workspace

import "crypto/rand"

const loginCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateLoginCode returns a random XXXX-XXXX login code, grounded on
// server.rs's generate_login_code. crypto/rand is used in place of the
// original's rand::rng() since a login code is a bearer credential, not
// cosmetic randomness.
func GenerateLoginCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	code := make([]byte, 9)
	for i := 0; i < 4; i++ {
		code[i] = loginCodeCharset[int(buf[i])%len(loginCodeCharset)]
	}
	code[4] = '-'
	for i := 4; i < 8; i++ {
		code[i+1] = loginCodeCharset[int(buf[i])%len(loginCodeCharset)]
	}
	return string(code), nil
}

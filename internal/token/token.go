package token

import (
	"encoding/base64"
	"errors"
	"strconv"
)

// ErrInvalidToken is returned by Decode for any string that Encode could not
// have produced.
var ErrInvalidToken = errors.New("invalid token")

// Encode maps a product id to a URL-safe reactivation token. The mapping is
// deterministic and reversible: the token is the unpadded URL-safe base64 of
// the decimal id. It carries no secret and proves nothing by itself.
func Encode(id int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(id)))
}

// Decode is the exact inverse of Encode. It fails with ErrInvalidToken instead
// of ever returning a wrong id.
func Decode(raw string) (int, error) {
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return 0, ErrInvalidToken
	}
	id, err := strconv.Atoi(string(data))
	if err != nil || id < 1 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

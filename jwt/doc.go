// Package jwt issues and parses the access/refresh token pair handed out
// after a confirmed login challenge.
package jwt

// Package internal contains helper utilities that are intentionally private
// to otpgate, currently secure challenge-identifier generation.
//
// # What this package must NOT do
//
//   - Export types that appear in the public otpgate API.
//   - Be imported by any package outside the otpgate module.
package internal

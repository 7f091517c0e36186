// Package filestore provides local-disk staging for uploads that arrive
// before the account they belong to exists. Files are staged into a temp
// area when a registration challenge begins and committed to their final
// location only after the account row lands.
package filestore

// Package gormstore implements the durable account store on PostgreSQL via
// GORM. Account creation applies the account row and its role profile in one
// transaction; unique-constraint violations surface as duplicate-account
// errors rather than driver errors.
package gormstore

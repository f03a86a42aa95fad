// Package postgres implements the store interfaces using PostgreSQL
// via database/sql and the pgx stdlib driver.
package postgres

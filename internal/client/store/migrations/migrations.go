// Package migrations embeds the goose SQL migrations for the local store.
// Migrations are additive only: new collections and indexes, never a
// destructive change to an existing one.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
